package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/yobidashi/internal/models"
)

func TestClassify(t *testing.T) {
	item := &models.Item{Text: "Text Editor", Keywords: []string{"gedit", "notepad"}}
	tests := []struct {
		term string
		want MatchType
	}{
		{"text editor", MatchTypeExact},
		{"TEXT", MatchTypePrefix},
		{"edi", MatchTypeWordPrefix},
		{"note", MatchTypeWordPrefix},
		{"ditor", MatchTypeSubstring},
		{"firefox", MatchTypeNone},
		{"   ", MatchTypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(models.NewTerm(tt.term), item))
		})
	}
}

func TestDefaultScorer_OrdersByMatchQuality(t *testing.T) {
	s := DefaultScorer{}
	term := models.NewTerm("fire")
	exact := s.Score(models.NewTerm("firefox"), &models.Item{Text: "Firefox"})
	prefix := s.Score(term, &models.Item{Text: "Firefox"})
	word := s.Score(term, &models.Item{Text: "Camp Fire"})
	fuzzy := s.Score(term, &models.Item{Text: "Fyre"})

	assert.Equal(t, int16(100), exact)
	assert.Greater(t, exact, prefix)
	assert.Greater(t, prefix, word)
	assert.Greater(t, word, fuzzy)
}

func TestDefaultScorer_LengthPenaltyIsBounded(t *testing.T) {
	s := DefaultScorer{}
	term := models.NewTerm("a")
	short := s.Score(term, &models.Item{Text: "ab"})
	long := s.Score(term, &models.Item{Text: "a very long application name that goes on and on"})
	assert.Greater(t, short, long)
	assert.Equal(t, MatchTypePrefix.baseScore()-maxLengthPenalty, long)
}

func TestMatchType_String(t *testing.T) {
	assert.Equal(t, "word_prefix", MatchTypeWordPrefix.String())
	assert.Equal(t, "unknown", MatchType(42).String())
}
