package indexer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/metrics"
)

// ErrClosed is returned when an update is requested from a closed manager.
var ErrClosed = errors.New("indexer manager closed")

// Manager owns the indexer lifecycle of one provider. At most one run is active at a
// time; a request arriving while a run is active aborts it and schedules exactly one
// follow-up run, started after the aborted run has torn down.
type Manager struct {
	source  Source
	target  *index.OfflineIndex
	status  StatusFunc
	logger  *zap.Logger
	metrics *metrics.Metrics
	onRun   func(Stats)

	mu      sync.Mutex
	current *Run
	pending bool
	closed  bool
	settled chan struct{} // closed when the manager goes idle; nil while idle
	last    Stats
	runs    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStatus sets the status text receiver.
func WithStatus(fn StatusFunc) Option {
	return func(m *Manager) { m.status = fn }
}

// WithMetrics records run outcomes and skipped entries.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithRunHook calls fn with the stats of every finished run, before its Done channel closes.
func WithRunHook(fn func(Stats)) Option {
	return func(m *Manager) { m.onRun = fn }
}

// NewManager returns a manager rebuilding target from source.
func NewManager(source Source, target *index.OfflineIndex, opts ...Option) *Manager {
	m := &Manager{
		source: source,
		target: target,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Index returns the index this manager rebuilds.
func (m *Manager) Index() *index.OfflineIndex { return m.target }

// RequestUpdate starts a rebuild, or when one is running, aborts it and schedules one more.
// Repeated requests while a follow-up is already pending coalesce into it.
func (m *Manager) RequestUpdate() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.current == nil {
		m.startLocked()
		m.mu.Unlock()
		return nil
	}
	m.current.Abort()
	waiting := !m.pending
	m.pending = true
	m.mu.Unlock()
	if waiting {
		m.emit("Waiting for indexer to shut down …")
	}
	return nil
}

// startLocked launches a new run. Callers hold m.mu.
func (m *Manager) startLocked() {
	r := newRun(m.source, m.target, m.status, m.logger)
	if m.metrics != nil {
		provider := m.source.Name()
		r.onSkip = func() { m.metrics.EntrySkipped(provider) }
	}
	m.current = r
	m.runs++
	if m.settled == nil {
		m.settled = make(chan struct{})
	}
	go m.drive(r)
}

func (m *Manager) drive(r *Run) {
	r.execute()
	stats := r.Stats()

	result := "installed"
	switch {
	case stats.Aborted:
		result = "aborted"
	case stats.Err != nil:
		result = "failed"
	}
	m.metrics.IndexRun(m.source.Name(), result, stats.Items, stats.Duration)
	if m.onRun != nil {
		m.onRun(stats)
	}

	m.mu.Lock()
	m.last = stats
	m.mu.Unlock()
	r.teardown()

	// The follow-up run starts only after the previous run's Done has closed.
	m.mu.Lock()
	m.current = nil
	if m.pending && !m.closed {
		m.pending = false
		m.startLocked()
	} else {
		m.pending = false
		close(m.settled)
		m.settled = nil
	}
	m.mu.Unlock()
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Current returns the active run, or nil.
func (m *Manager) Current() *Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// LastStats returns the stats of the most recently finished run.
func (m *Manager) LastStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Runs returns how many runs have been started.
func (m *Manager) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// Wait blocks until no run is active or pending.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	settled := m.settled
	m.mu.Unlock()
	if settled == nil {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts any active run, drops a pending one and waits for teardown.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.pending = false
	if m.current != nil {
		m.current.Abort()
	}
	m.mu.Unlock()
	return m.Wait(ctx)
}

func (m *Manager) emit(text string) {
	if m.status != nil {
		m.status(m.source.Name(), text)
	}
}
