// Package storage persists item activations and derives usage weights from them.
package storage

import (
	"context"
	"time"
)

// Usage is one recorded activation.
type Usage struct {
	ItemID      string
	Provider    string
	ActivatedAt time.Time
}

// UsageStore defines activation persistence operations.
type UsageStore interface {
	RecordUsage(ctx context.Context, u Usage) error
	// LoadWeights returns the decayed usage weight per item, normalized so the most used
	// item has weight 1.
	LoadWeights(ctx context.Context) (map[string]float64, error)
	ListUsages(ctx context.Context, limit int) ([]Usage, error)
	CountUsages(ctx context.Context) (int64, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
