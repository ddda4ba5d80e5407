// Package indexer rebuilds offline indexes in the background: one cancellable run at a
// time per provider, scanning a Source and installing the result into an OfflineIndex.
package indexer

import (
	"context"

	"github.com/hyperjump/yobidashi/internal/models"
)

// Source produces the items of one provider.
type Source interface {
	// Name identifies the provider in status text, logs and metrics.
	Name() string
	// Scan reports every item to sink. It should return promptly once ctx is cancelled or
	// sink.Aborted reports true. Unreadable entries are reported through sink.Skip and do
	// not fail the scan.
	Scan(ctx context.Context, sink Sink) error
}

// Sink receives the output of a Source scan.
type Sink interface {
	// Add appends an item to the snapshot under construction.
	Add(item models.Item)
	// Skip records an entry that could not be read or parsed.
	Skip(entry string, err error)
	// Status publishes free-form progress text.
	Status(text string)
	// Aborted reports whether the run was aborted; sources poll it per entry.
	Aborted() bool
}

// StatusFunc receives status text for a provider.
type StatusFunc func(provider, text string)

// SourceFunc adapts a scan function to Source.
type SourceFunc struct {
	SourceName string
	ScanFunc   func(ctx context.Context, sink Sink) error
}

// Name returns SourceName.
func (s SourceFunc) Name() string { return s.SourceName }

// Scan calls ScanFunc.
func (s SourceFunc) Scan(ctx context.Context, sink Sink) error { return s.ScanFunc(ctx, sink) }
