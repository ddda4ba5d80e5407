// Package models defines core data structures for items, search terms, and candidates.
package models

import (
	"context"
	"strings"
)

// Item is an indexable launcher entry. Items are immutable once handed to an index
// builder or added to a query; candidates reference them by pointer.
type Item struct {
	// ID is the stable identity used for usage weighting and deduplication.
	ID string `json:"id"`
	// Text is the display text and the primary searchable field.
	Text string `json:"text"`
	// Subtext is secondary display text (comment, URL, path).
	Subtext string `json:"subtext,omitempty"`
	// Keywords are extra searchable terms that are not displayed.
	Keywords []string `json:"keywords,omitempty"`
	// Provider is the name of the extension that produced the item.
	Provider string `json:"provider"`
	// Action runs when the item is activated. May be nil.
	Action Action `json:"-"`
}

// SearchableText returns every searchable field joined by spaces.
func (it *Item) SearchableText() string {
	if len(it.Keywords) == 0 {
		return it.Text
	}
	parts := make([]string, 0, len(it.Keywords)+1)
	parts = append(parts, it.Text)
	parts = append(parts, it.Keywords...)
	return strings.Join(parts, " ")
}

// Action is the item-specific behavior behind activation.
type Action interface {
	// Name is a short human-readable label, e.g. "Run" or "Open URL".
	Name() string
	Run(ctx context.Context) error
}

// Candidate is a scored reference to an item proposed as a query result.
type Candidate struct {
	Item  *Item `json:"item"`
	Score int16 `json:"score"`
}
