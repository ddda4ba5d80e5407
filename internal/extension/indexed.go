package extension

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/indexer"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
)

// checkEvery is how many candidates are scored between validity checks.
const checkEvery = 64

// IndexedHandler answers queries from an OfflineIndex kept fresh by an indexer Manager.
type IndexedHandler struct {
	name    string
	index   *index.OfflineIndex
	manager *indexer.Manager
	scorer  ranking.Scorer
	logger  *zap.Logger
}

// IndexedOption configures an IndexedHandler.
type IndexedOption func(*IndexedHandler)

// WithScorer replaces the default match-quality scorer.
func WithScorer(s ranking.Scorer) IndexedOption {
	return func(h *IndexedHandler) {
		if s != nil {
			h.scorer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexedOption {
	return func(h *IndexedHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewIndexedHandler returns a handler named after source. The manager must rebuild idx.
func NewIndexedHandler(source indexer.Source, idx *index.OfflineIndex, manager *indexer.Manager, opts ...IndexedOption) *IndexedHandler {
	h := &IndexedHandler{
		name:    source.Name(),
		index:   idx,
		manager: manager,
		scorer:  ranking.DefaultScorer{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements Handler.
func (h *IndexedHandler) Name() string { return h.name }

// HandleQuery implements Handler.
func (h *IndexedHandler) HandleQuery(ctx context.Context, q Query) error {
	term := q.Term()
	items := h.index.SearchTerm(term)
	if len(items) == 0 {
		return nil
	}
	candidates := make([]models.Candidate, 0, len(items))
	for i, it := range items {
		if i%checkEvery == 0 {
			if !q.IsValid() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return nil
			}
		}
		candidates = append(candidates, models.Candidate{Item: it, Score: h.scorer.Score(term, it)})
	}
	q.AddMatches(candidates)
	return nil
}

// Index returns the underlying index.
func (h *IndexedHandler) Index() *index.OfflineIndex { return h.index }

// Manager returns the indexer manager.
func (h *IndexedHandler) Manager() *indexer.Manager { return h.manager }

// SetFuzzy toggles fuzzy matching on the index.
func (h *IndexedHandler) SetFuzzy(enabled bool) {
	h.index.SetFuzzy(enabled)
	h.logger.Debug("fuzzy matching toggled", zap.String("provider", h.name), zap.Bool("fuzzy", enabled))
}

// Fuzzy reports whether fuzzy matching is enabled.
func (h *IndexedHandler) Fuzzy() bool { return h.index.Fuzzy() }

// UpdateIndex requests a rebuild.
func (h *IndexedHandler) UpdateIndex() error { return h.manager.RequestUpdate() }

// Close stops the indexer and releases the index.
func (h *IndexedHandler) Close(ctx context.Context) error {
	if err := h.manager.Close(ctx); err != nil {
		return err
	}
	return h.index.Close()
}
