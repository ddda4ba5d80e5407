package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/yobidashi/internal/models"
)

// Scorer derives a relevance score for an item the index reported as matching term.
type Scorer interface {
	Score(term models.Term, item *models.Item) int16
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(term models.Term, item *models.Item) int16

// Score calls f.
func (f ScorerFunc) Score(term models.Term, item *models.Item) int16 { return f(term, item) }

// ZeroScorer assigns every match the same relevance, leaving order to usage and text.
var ZeroScorer = ScorerFunc(func(models.Term, *models.Item) int16 { return 0 })

// maxLengthPenalty caps how much longer display text can lower a score within one match type.
const maxLengthPenalty = 9

// DefaultScorer scores by match quality. Items reported by the index that match no
// lexical rule are assumed to be fuzzy matches.
type DefaultScorer struct{}

// Score implements Scorer.
func (DefaultScorer) Score(term models.Term, item *models.Item) int16 {
	mt := Classify(term, item)
	if mt == MatchTypeNone {
		mt = MatchTypeFuzzy
	}
	extra := utf8.RuneCountInString(item.Text) - utf8.RuneCountInString(term.String())
	penalty := int16(0)
	if extra > 0 {
		penalty = int16(min(extra/4, maxLengthPenalty))
	}
	return mt.baseScore() - penalty
}

// Classify returns the best lexical match type of term against item.
func Classify(term models.Term, item *models.Item) MatchType {
	if term.IsEmpty() {
		return MatchTypeNone
	}
	q := term.String()
	text := strings.Join(models.Tokenize(item.Text), " ")
	lowerText := strings.ToLower(item.Text)
	switch {
	case text == q || lowerText == q:
		return MatchTypeExact
	case strings.HasPrefix(lowerText, q) || strings.HasPrefix(text, q):
		return MatchTypePrefix
	case wordsPrefixTokens(term.Words(), models.Tokenize(item.SearchableText())):
		return MatchTypeWordPrefix
	case strings.Contains(strings.ToLower(item.SearchableText()), q):
		return MatchTypeSubstring
	default:
		return MatchTypeNone
	}
}

// wordsPrefixTokens reports whether every word is a prefix of at least one token.
func wordsPrefixTokens(words, tokens []string) bool {
	for _, w := range words {
		found := false
		for _, tok := range tokens {
			if strings.HasPrefix(tok, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(words) > 0
}
