package search

import (
	"fmt"

	"github.com/hyperjump/yobidashi/internal/models"
)

// DedupPolicy decides what happens when several handlers contribute the same item.
type DedupPolicy string

const (
	// DedupNone keeps every candidate.
	DedupNone DedupPolicy = "none"
	// DedupByID keeps only the best-ranked candidate per item ID.
	DedupByID DedupPolicy = "id"
)

// ParseDedupPolicy parses a configuration value. Empty means DedupNone.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(s) {
	case "", DedupNone:
		return DedupNone, nil
	case DedupByID:
		return DedupByID, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q", s)
	}
}

// dedup applies policy to an already sorted list, keeping the first occurrence.
func dedup(sorted []models.Candidate, policy DedupPolicy) []models.Candidate {
	if policy != DedupByID || len(sorted) < 2 {
		return sorted
	}
	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, c := range sorted {
		if _, ok := seen[c.Item.ID]; ok {
			continue
		}
		seen[c.Item.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// fallbackCandidates wraps fallback items as zero-score candidates, preserving order.
func fallbackCandidates(items []*models.Item) []models.Candidate {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.Candidate, len(items))
	for i, it := range items {
		out[i] = models.Candidate{Item: it}
	}
	return out
}
