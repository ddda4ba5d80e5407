package index

// LevenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one string into another.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	return distance([]rune(a), []rune(b), -1)
}

// withinDistance reports whether a and b differ by at most limit edits. It stops as soon
// as every cell of a row exceeds limit.
func withinDistance(a, b []rune, limit int) bool {
	if d := len(a) - len(b); d > limit || -d > limit {
		return false
	}
	return distance(a, b, limit) <= limit
}

// distance is the two-row Levenshtein matrix. A non-negative bound enables early exit,
// in which case the result is only meaningful when it is <= bound.
func distance(a, b []rune, bound int) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
			rowMin = min(rowMin, curr[j])
		}
		if bound >= 0 && rowMin > bound {
			return rowMin
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// fuzzyBound is the edit distance tolerated for a query word: a third of its length,
// at least one and at most limit.
func fuzzyBound(word []rune, limit int) int {
	return max(1, min(len(word)/3, limit))
}
