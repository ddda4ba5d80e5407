package ranking

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/hyperjump/yobidashi/internal/models"
)

// MatchOrder is the total order used for final result lists: higher score first, then
// higher usage weight, then display text, then item ID.
type MatchOrder struct {
	weights *Weights
}

// NewMatchOrder returns an order reading from weights. A nil weights table treats every
// item as unused.
func NewMatchOrder(weights *Weights) *MatchOrder {
	if weights == nil {
		weights = NewWeights(nil)
	}
	return &MatchOrder{weights: weights}
}

// Weights returns the backing weights table.
func (o *MatchOrder) Weights() *Weights { return o.weights }

// Update reloads usage weights from their persistent store.
func (o *MatchOrder) Update(ctx context.Context) error {
	return o.weights.Update(ctx)
}

// Compare returns a negative number when a ranks before b, positive when after, and zero
// only for candidates referring to the same item with the same score.
func (o *MatchOrder) Compare(a, b models.Candidate) int {
	return compareWith(o.weights.snapshot(), a, b)
}

// Less reports whether a ranks before b.
func (o *MatchOrder) Less(a, b models.Candidate) bool {
	return o.Compare(a, b) < 0
}

// Sort stable-sorts candidates in place. The whole sort reads a single weights snapshot,
// so a concurrent Update cannot reorder candidates mid-sort.
func (o *MatchOrder) Sort(candidates []models.Candidate) {
	weights := o.weights.snapshot()
	slices.SortStableFunc(candidates, func(a, b models.Candidate) int {
		return compareWith(weights, a, b)
	})
}

func compareWith(weights map[string]float64, a, b models.Candidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(weights[b.Item.ID], weights[a.Item.ID]); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Item.Text), strings.ToLower(b.Item.Text)); c != 0 {
		return c
	}
	if c := strings.Compare(a.Item.Text, b.Item.Text); c != 0 {
		return c
	}
	return strings.Compare(a.Item.ID, b.Item.ID)
}
