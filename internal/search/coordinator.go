// Package search runs queries: it fans a term out to every handler, collects candidates
// under a latency budget and produces the ranked result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/metrics"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
)

const (
	// DefaultUXTimeout is how long a session collects before surfacing partial results.
	DefaultUXTimeout = 50 * time.Millisecond
	// DefaultNotifyInterval is the minimum spacing of ResultsChanged events.
	DefaultNotifyInterval = 100 * time.Millisecond
)

var (
	// ErrNilDependency is returned when a required collaborator is nil.
	ErrNilDependency = errors.New("nil dependency")
	// ErrNoSuchResult is returned when activating an index outside the result list.
	ErrNoSuchResult = errors.New("no such result")
	// ErrNoAction is returned when activating an item without an action.
	ErrNoAction = errors.New("item has no action")
)

// ActivationRecorder persists that an item was activated.
type ActivationRecorder interface {
	RecordActivation(ctx context.Context, item *models.Item) error
}

// Coordinator creates query sessions over a fixed set of handlers.
type Coordinator struct {
	handlers       []extension.Handler
	fallbacks      []extension.FallbackProvider
	order          *ranking.MatchOrder
	pool           *ants.Pool
	uxTimeout      time.Duration
	notifyInterval time.Duration
	poolSize       int
	dedup          DedupPolicy
	recorder       ActivationRecorder
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUXTimeout sets the delay after which partial results are surfaced.
func WithUXTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.uxTimeout = d
		}
	}
}

// WithNotifyInterval sets the minimum spacing of ResultsChanged events.
func WithNotifyInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.notifyInterval = d
		}
	}
}

// WithPoolSize sets the number of goroutines running handlers.
func WithPoolSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithFallbacks adds fallback providers besides handlers implementing FallbackProvider.
func WithFallbacks(providers ...extension.FallbackProvider) Option {
	return func(c *Coordinator) { c.fallbacks = append(c.fallbacks, providers...) }
}

// WithDedup sets the deduplication policy applied to finished results.
func WithDedup(p DedupPolicy) Option {
	return func(c *Coordinator) { c.dedup = p }
}

// WithMetrics records query and handler metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithRecorder persists activations and reloads usage weights afterwards.
func WithRecorder(r ActivationRecorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// NewCoordinator returns a coordinator dispatching to handlers in registration order.
func NewCoordinator(handlers []extension.Handler, order *ranking.MatchOrder, opts ...Option) (*Coordinator, error) {
	if order == nil {
		return nil, fmt.Errorf("match order: %w", ErrNilDependency)
	}
	for i, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("handler %d: %w", i, ErrNilDependency)
		}
	}
	c := &Coordinator{
		handlers:       append([]extension.Handler(nil), handlers...),
		order:          order,
		uxTimeout:      DefaultUXTimeout,
		notifyInterval: DefaultNotifyInterval,
		poolSize:       max(4, 2*runtime.NumCPU()),
		dedup:          DedupNone,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, h := range c.handlers {
		if fp, ok := h.(extension.FallbackProvider); ok {
			c.fallbacks = append(c.fallbacks, fp)
		}
	}
	pool, err := ants.NewPool(c.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create handler pool: %w", err)
	}
	c.pool = pool
	return c, nil
}

// Handlers returns the registered handlers.
func (c *Coordinator) Handlers() []extension.Handler { return c.handlers }

// Order returns the match order used for ranking.
func (c *Coordinator) Order() *ranking.MatchOrder { return c.order }

// Query starts a session for raw. Cancelling ctx invalidates the session. observer may
// be nil, in which case events are dropped.
func (c *Coordinator) Query(ctx context.Context, raw string, observer Observer) *Session {
	if observer == nil {
		observer = ObserverFuncs{}
	}
	s := newSession(ctx, c, models.NewTerm(raw), observer)
	c.logger.Debug("query started",
		zap.String("session_id", s.id),
		zap.String("term", s.term.String()),
		zap.Int("handlers", len(c.handlers)))

	for _, fp := range c.fallbacks {
		s.fallbacks = append(s.fallbacks, fp.Fallbacks(s.term)...)
	}
	observer.Started(s)
	s.start()
	for i, h := range c.handlers {
		c.dispatch(s, i, h)
	}
	if len(c.handlers) == 0 {
		s.finish()
	}
	return s
}

func (c *Coordinator) dispatch(s *Session, origin int, h extension.Handler) {
	task := func() { s.runHandler(origin, h) }
	if err := c.pool.Submit(task); err != nil {
		c.logger.Debug("handler pool saturated, running unpooled",
			zap.String("handler", h.Name()), zap.Error(err))
		go task()
	}
}

// Close releases the handler pool. Sessions still running complete on plain goroutines.
func (c *Coordinator) Close() {
	c.pool.Release()
}
