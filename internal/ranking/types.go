// Package ranking orders query candidates by score, learned usage weight and display text.
package ranking

// MatchType classifies how a search term matched an item's text.
type MatchType int

const (
	// MatchTypeNone indicates no match was found.
	MatchTypeNone MatchType = iota
	// MatchTypeFuzzy indicates a match within the fuzzy edit-distance bound only.
	MatchTypeFuzzy
	// MatchTypeSubstring indicates the term occurs inside the text but not at a word start.
	MatchTypeSubstring
	// MatchTypeWordPrefix indicates every term word prefixes some word of the item.
	MatchTypeWordPrefix
	// MatchTypePrefix indicates the display text starts with the term.
	MatchTypePrefix
	// MatchTypeExact indicates the display text equals the term (case-insensitive).
	MatchTypeExact
)

// String returns a string representation of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchTypeNone:
		return "none"
	case MatchTypeFuzzy:
		return "fuzzy"
	case MatchTypeSubstring:
		return "substring"
	case MatchTypeWordPrefix:
		return "word_prefix"
	case MatchTypePrefix:
		return "prefix"
	case MatchTypeExact:
		return "exact"
	default:
		return "unknown"
	}
}

// baseScore is the relevance assigned to each match type before length penalties.
func (m MatchType) baseScore() int16 {
	switch m {
	case MatchTypeExact:
		return 100
	case MatchTypePrefix:
		return 80
	case MatchTypeWordPrefix:
		return 60
	case MatchTypeSubstring:
		return 40
	case MatchTypeFuzzy:
		return 20
	default:
		return 0
	}
}
