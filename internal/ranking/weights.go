package ranking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// WeightSource loads usage weights from persistent storage.
type WeightSource interface {
	LoadWeights(ctx context.Context) (map[string]float64, error)
}

// Weights is the usage-derived weight per item ID. Readers never block: the map is
// published through an atomic pointer and replaced as a whole on every write.
type Weights struct {
	source  WeightSource
	current atomic.Pointer[map[string]float64]
	writeMu sync.Mutex
}

// NewWeights returns an empty weights table backed by source. source may be nil, in which
// case Update is a no-op and weights only change through Set.
func NewWeights(source WeightSource) *Weights {
	w := &Weights{source: source}
	empty := make(map[string]float64)
	w.current.Store(&empty)
	return w
}

// Update reloads every weight from the source.
func (w *Weights) Update(ctx context.Context) error {
	if w.source == nil {
		return nil
	}
	loaded, err := w.source.LoadWeights(ctx)
	if err != nil {
		return fmt.Errorf("load usage weights: %w", err)
	}
	if loaded == nil {
		loaded = make(map[string]float64)
	}
	w.writeMu.Lock()
	w.current.Store(&loaded)
	w.writeMu.Unlock()
	return nil
}

// Weight returns the weight for id, or 0 when unknown.
func (w *Weights) Weight(id string) float64 {
	return w.snapshot()[id]
}

// snapshot returns the current map. It is never mutated after publication.
func (w *Weights) snapshot() map[string]float64 {
	return *w.current.Load()
}

// Set replaces the weight of a single item.
func (w *Weights) Set(id string, weight float64) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	old := *w.current.Load()
	next := make(map[string]float64, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[id] = weight
	w.current.Store(&next)
}

// Len returns the number of items with a recorded weight.
func (w *Weights) Len() int {
	return len(*w.current.Load())
}
