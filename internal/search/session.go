package search

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/models"
)

// HandlerRuntime is the diagnostic record of one handler's part in a query.
type HandlerRuntime struct {
	Handler  string
	Duration time.Duration
	Err      error
	Panicked bool
}

// Session is one running or finished query. Candidates are appended only while the
// session is running and valid; invalidation is permanent.
type Session struct {
	id       string
	term     models.Term
	coord    *Coordinator
	observer Observer
	created  time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	stopCancel func() bool

	// emitMu serializes observer events so none interleave or outlive Finished.
	emitMu sync.Mutex

	mu          sync.Mutex
	candidates  []models.Candidate
	origins     []int
	fallbacks   []*models.Item
	results     []models.Candidate
	promoted    bool
	valid       bool
	running     bool
	ready       bool
	remaining   int
	runtimes    []HandlerRuntime
	uxTimer     *time.Timer
	notifyTimer *time.Timer
	lastNotify  time.Time

	done chan struct{}
}

func newSession(parent context.Context, c *Coordinator, term models.Term, observer Observer) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:        uuid.New().String(),
		term:      term,
		coord:     c,
		observer:  observer,
		created:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		valid:     true,
		running:   true,
		remaining: len(c.handlers),
		runtimes:  make([]HandlerRuntime, len(c.handlers)),
		done:      make(chan struct{}),
	}
	for i, h := range c.handlers {
		s.runtimes[i].Handler = h.Name()
	}
	return s
}

// start arms the UX timer and ties the session to its parent context.
func (s *Session) start() {
	s.mu.Lock()
	s.uxTimer = time.AfterFunc(s.coord.uxTimeout, s.onUXTimeout)
	s.mu.Unlock()
	s.stopCancel = context.AfterFunc(s.ctx, s.Invalidate)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Term returns the normalized search term.
func (s *Session) Term() models.Term { return s.term }

// IsRunning reports whether any handler is still running.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsValid reports whether the session has not been invalidated.
func (s *Session) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

// Done is closed once every handler has returned, whether or not the session is valid.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until Done is closed or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate discards the session. Running handlers finish but their matches are dropped,
// and no further events are emitted. Invalidate is idempotent.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if !s.valid {
		s.mu.Unlock()
		return
	}
	s.valid = false
	wasRunning := s.running
	if s.uxTimer != nil {
		s.uxTimer.Stop()
	}
	if s.notifyTimer != nil {
		s.notifyTimer.Stop()
		s.notifyTimer = nil
	}
	s.mu.Unlock()
	s.cancel()
	if wasRunning {
		s.coord.metrics.QueryInvalidated()
		s.coord.logger.Debug("query invalidated", zap.String("session_id", s.id))
	}
}

// AddMatch appends one candidate for an anonymous origin.
func (s *Session) AddMatch(item *models.Item, score int16) {
	s.add(-1, []models.Candidate{{Item: item, Score: score}})
}

// AddMatches appends candidates for an anonymous origin.
func (s *Session) AddMatches(candidates []models.Candidate) {
	s.add(-1, candidates)
}

func (s *Session) add(origin int, candidates []models.Candidate) {
	if len(candidates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || !s.valid {
		return
	}
	for _, c := range candidates {
		if c.Item == nil {
			continue
		}
		s.candidates = append(s.candidates, c)
		s.origins = append(s.origins, origin)
	}
	if s.ready {
		s.scheduleNotifyLocked()
	}
}

// purge drops every candidate contributed by origin.
func (s *Session) purge(origin int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := 0
	for i, o := range s.origins {
		if o == origin {
			continue
		}
		s.candidates[kept] = s.candidates[i]
		s.origins[kept] = o
		kept++
	}
	clear(s.candidates[kept:])
	s.candidates = s.candidates[:kept]
	s.origins = s.origins[:kept]
}

// scheduleNotifyLocked arms a trailing ResultsChanged event. Callers hold s.mu.
func (s *Session) scheduleNotifyLocked() {
	if s.notifyTimer != nil {
		return
	}
	wait := s.coord.notifyInterval - time.Since(s.lastNotify)
	if wait < 0 {
		wait = 0
	}
	s.notifyTimer = time.AfterFunc(wait, s.onNotify)
}

func (s *Session) onNotify() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	s.notifyTimer = nil
	if !s.running || !s.valid {
		s.mu.Unlock()
		return
	}
	s.lastNotify = time.Now()
	list := s.snapshotLocked()
	s.mu.Unlock()
	s.coord.order.Sort(list)
	s.observer.ResultsChanged(s, list)
}

func (s *Session) onUXTimeout() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	if !s.valid || s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	s.lastNotify = time.Now()
	var list []models.Candidate
	sorted := !s.running
	if sorted {
		list = append([]models.Candidate(nil), s.results...)
	} else {
		list = s.snapshotLocked()
	}
	s.mu.Unlock()
	if !sorted {
		s.coord.order.Sort(list)
	}
	s.observer.ResultsReady(s, list)
}

func (s *Session) snapshotLocked() []models.Candidate {
	return append([]models.Candidate(nil), s.candidates...)
}

// runHandler is one dispatched task: hooks, the query itself and failure isolation.
func (s *Session) runHandler(origin int, h extension.Handler) {
	start := time.Now()
	var (
		err      error
		panicked bool
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				panicked = true
				err = fmt.Errorf("handler %s panicked: %v", h.Name(), p)
				s.coord.logger.Error("handler panicked",
					zap.String("handler", h.Name()),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		hooks, hasHooks := h.(extension.SessionHooks)
		if hasHooks {
			hooks.SetupSession()
			defer hooks.TeardownSession()
		}
		err = h.HandleQuery(s.ctx, handlerQuery{s: s, origin: origin})
	}()
	elapsed := time.Since(start)

	s.coord.metrics.HandlerRan(h.Name(), elapsed)
	if err != nil {
		s.purge(origin)
		kind := "error"
		if panicked {
			kind = "panic"
		} else {
			s.coord.logger.Warn("handler failed", zap.String("handler", h.Name()), zap.Error(err))
		}
		s.coord.metrics.HandlerFailed(h.Name(), kind)
	}

	s.mu.Lock()
	s.runtimes[origin] = HandlerRuntime{Handler: h.Name(), Duration: elapsed, Err: err, Panicked: panicked}
	s.remaining--
	last := s.remaining == 0
	s.mu.Unlock()
	if last {
		s.finish()
	}
}

// finish runs once after the last handler: sort, dedup, fallback promotion and Finished.
func (s *Session) finish() {
	// A cancelled parent context may not have run its invalidation callback yet.
	if s.ctx.Err() != nil {
		s.Invalidate()
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.running = false
	if s.notifyTimer != nil {
		s.notifyTimer.Stop()
		s.notifyTimer = nil
	}
	valid := s.valid
	list := s.snapshotLocked()
	s.mu.Unlock()

	if s.stopCancel != nil {
		s.stopCancel()
	}
	defer close(s.done)
	defer s.cancel()
	if !valid {
		return
	}

	s.coord.order.Sort(list)
	list = dedup(list, s.coord.dedup)
	promoted := false
	if len(list) == 0 {
		list = fallbackCandidates(s.fallbacks)
		promoted = len(list) > 0
	}

	s.mu.Lock()
	s.results = list
	s.promoted = promoted
	s.mu.Unlock()

	elapsed := time.Since(s.created)
	s.coord.metrics.QueryFinished(elapsed, len(list))
	s.coord.logger.Debug("query finished",
		zap.String("session_id", s.id),
		zap.Int("results", len(list)),
		zap.Bool("fallbacks", promoted),
		zap.Duration("elapsed", elapsed))
	s.observer.Finished(s, append([]models.Candidate(nil), list...))
}

// Results returns the final list once finished, otherwise the ordered candidates so far.
func (s *Session) Results() []models.Candidate {
	s.mu.Lock()
	if !s.running && s.valid {
		out := append([]models.Candidate(nil), s.results...)
		s.mu.Unlock()
		return out
	}
	list := s.snapshotLocked()
	s.mu.Unlock()
	s.coord.order.Sort(list)
	return list
}

// Fallbacks returns the fallback items collected for this term.
func (s *Session) Fallbacks() []*models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Item(nil), s.fallbacks...)
}

// FallbacksPromoted reports whether the final list consists of fallbacks.
func (s *Session) FallbacksPromoted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoted
}

// Runtimes returns per-handler diagnostics in registration order.
func (s *Session) Runtimes() []HandlerRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HandlerRuntime(nil), s.runtimes...)
}

// Activate runs the action of result i and records the activation.
func (s *Session) Activate(ctx context.Context, i int) error {
	results := s.Results()
	if i < 0 || i >= len(results) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchResult, i, len(results))
	}
	item := results[i].Item
	if item.Action == nil {
		return fmt.Errorf("%s: %w", item.ID, ErrNoAction)
	}
	if err := item.Action.Run(ctx); err != nil {
		return fmt.Errorf("activate %s: %w", item.ID, err)
	}
	s.coord.metrics.Activated(item.Provider)
	if s.coord.recorder == nil {
		return nil
	}
	if err := s.coord.recorder.RecordActivation(ctx, item); err != nil {
		return fmt.Errorf("record activation: %w", err)
	}
	if err := s.coord.order.Update(ctx); err != nil {
		s.coord.logger.Warn("reload usage weights", zap.Error(err))
	}
	return nil
}

// handlerQuery is the Query view handed to one handler; it tags candidates with their
// origin so a failing handler's matches can be purged.
type handlerQuery struct {
	s      *Session
	origin int
}

func (q handlerQuery) Term() models.Term { return q.s.term }

func (q handlerQuery) AddMatch(item *models.Item, score int16) {
	q.s.add(q.origin, []models.Candidate{{Item: item, Score: score}})
}

func (q handlerQuery) AddMatches(candidates []models.Candidate) {
	q.s.add(q.origin, candidates)
}

func (q handlerQuery) IsValid() bool { return q.s.IsValid() }
