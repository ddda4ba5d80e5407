package indexer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/models"
)

// Stats summarizes one run.
type Stats struct {
	RunID     string
	Items     int
	Skipped   int
	Aborted   bool
	Installed bool
	Err       error
	Duration  time.Duration
}

// Run is a single cancellable scan of a Source into a fresh snapshot. A run is used once.
type Run struct {
	id      string
	source  Source
	target  *index.OfflineIndex
	builder *index.Builder
	status  StatusFunc
	logger  *zap.Logger
	onSkip  func()

	ctx    context.Context
	cancel context.CancelFunc

	aborted  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once

	mu    sync.Mutex
	stats Stats
}

func newRun(source Source, target *index.OfflineIndex, status StatusFunc, logger *zap.Logger) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	return &Run{
		id:      id,
		source:  source,
		target:  target,
		builder: target.NewBuilder(),
		status:  status,
		logger:  logger.With(zap.String("provider", source.Name()), zap.String("run_id", id)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stats:   Stats{RunID: id},
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Abort asks the run to stop at its next checkpoint. Abort is idempotent.
func (r *Run) Abort() {
	if r.aborted.CompareAndSwap(false, true) {
		r.logger.Debug("indexer run aborted")
	}
	r.cancel()
}

// Aborted implements Sink.
func (r *Run) Aborted() bool { return r.aborted.Load() }

// Done is closed exactly once when the run has torn down, whether it completed or aborted.
func (r *Run) Done() <-chan struct{} { return r.done }

// Stats returns a copy of the run's counters.
func (r *Run) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Add implements Sink. Items arriving after abort are dropped.
func (r *Run) Add(item models.Item) {
	if r.aborted.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builder == nil {
		return
	}
	r.builder.Add(item)
	r.stats.Items++
}

// Skip implements Sink.
func (r *Run) Skip(entry string, err error) {
	r.mu.Lock()
	r.stats.Skipped++
	r.mu.Unlock()
	if r.onSkip != nil {
		r.onSkip()
	}
	r.logger.Debug("indexer skipping entry", zap.String("entry", entry), zap.Error(err))
}

// Status implements Sink.
func (r *Run) Status(text string) {
	if r.status != nil {
		r.status(r.source.Name(), text)
	}
}

// execute scans, builds and installs. It does not close Done; the owner calls teardown.
func (r *Run) execute() {
	start := time.Now()
	defer r.cancel()
	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			r.stats.Err = fmt.Errorf("indexer panic: %v", p)
			r.mu.Unlock()
			r.logger.Error("indexer panicked", zap.Any("panic", p))
		}
		r.mu.Lock()
		r.stats.Duration = time.Since(start)
		r.mu.Unlock()
	}()

	r.Status("Indexing " + r.source.Name() + " …")
	err := r.source.Scan(r.ctx, r)
	if r.aborted.Load() {
		r.markAborted()
		return
	}
	if err != nil {
		r.mu.Lock()
		r.stats.Err = fmt.Errorf("scan %s: %w", r.source.Name(), err)
		r.mu.Unlock()
		r.logger.Warn("indexer scan failed", zap.Error(err))
		r.Status("Indexing failed: " + err.Error())
		return
	}

	r.mu.Lock()
	builder := r.builder
	r.builder = nil
	r.mu.Unlock()
	snap, err := builder.Build()
	if err != nil {
		r.mu.Lock()
		r.stats.Err = err
		r.mu.Unlock()
		r.logger.Warn("indexer build failed", zap.Error(err))
		r.Status("Indexing failed: " + err.Error())
		return
	}
	if r.aborted.Load() {
		_ = snap.Close()
		r.markAborted()
		return
	}
	r.target.Install(snap)
	r.mu.Lock()
	r.stats.Installed = true
	r.mu.Unlock()
	r.Status(fmt.Sprintf("%d items indexed.", snap.Len()))
	r.logger.Debug("indexer run installed snapshot", zap.Int("items", snap.Len()))
}

func (r *Run) markAborted() {
	r.mu.Lock()
	r.stats.Aborted = true
	r.builder = nil
	r.mu.Unlock()
}

// teardown closes Done. Safe to call more than once.
func (r *Run) teardown() {
	r.doneOnce.Do(func() { close(r.done) })
}
