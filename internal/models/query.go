package models

import (
	"strings"
	"unicode"
)

// Term is an immutable, case-normalized search term.
type Term struct {
	raw        string
	normalized string
	words      []string
}

// NewTerm normalizes raw: trims, lower-cases and collapses whitespace.
func NewTerm(raw string) Term {
	words := strings.FieldsFunc(strings.ToLower(raw), unicode.IsSpace)
	return Term{
		raw:        raw,
		normalized: strings.Join(words, " "),
		words:      words,
	}
}

// Raw returns the term as typed.
func (t Term) Raw() string { return t.raw }

// String returns the normalized term.
func (t Term) String() string { return t.normalized }

// Words returns the normalized words. The slice must not be modified.
func (t Term) Words() []string { return t.words }

// IsEmpty reports whether the term has no words (empty or whitespace only).
func (t Term) IsEmpty() bool { return len(t.words) == 0 }

// Tokenize lower-cases s and splits it into words of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
