package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/metrics"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
)

// funcHandler is a Handler backed by a function.
type funcHandler struct {
	name string
	fn   func(ctx context.Context, q extension.Query) error
}

func (h *funcHandler) Name() string { return h.name }
func (h *funcHandler) HandleQuery(ctx context.Context, q extension.Query) error {
	return h.fn(ctx, q)
}

func staticHandler(name string, score int16, texts ...string) *funcHandler {
	return &funcHandler{name: name, fn: func(ctx context.Context, q extension.Query) error {
		for _, text := range texts {
			q.AddMatch(&models.Item{ID: name + ":" + text, Text: text, Provider: name}, score)
		}
		return nil
	}}
}

// recorder captures observer events in order.
type recorder struct {
	mu       sync.Mutex
	events   []string
	ready    []models.Candidate
	changed  [][]models.Candidate
	finished []models.Candidate
	readyAt  time.Time
}

func (r *recorder) observer() ObserverFuncs {
	return ObserverFuncs{
		OnStarted: func(*Session) { r.record("started") },
		OnResultsReady: func(_ *Session, list []models.Candidate) {
			r.mu.Lock()
			r.readyAt = time.Now()
			r.ready = list
			r.mu.Unlock()
			r.record("ready")
		},
		OnResultsChanged: func(_ *Session, list []models.Candidate) {
			r.mu.Lock()
			r.changed = append(r.changed, list)
			r.mu.Unlock()
			r.record("changed")
		},
		OnFinished: func(_ *Session, list []models.Candidate) {
			r.mu.Lock()
			r.finished = list
			r.mu.Unlock()
			r.record("finished")
		},
	}
}

func (r *recorder) record(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(ev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

func newCoordinator(t *testing.T, handlers []extension.Handler, opts ...Option) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(handlers, ranking.NewMatchOrder(nil), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func textsOf(list []models.Candidate) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Item.Text
	}
	return out
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestNewCoordinator_NilDependencies(t *testing.T) {
	_, err := NewCoordinator(nil, nil)
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewCoordinator([]extension.Handler{nil}, ranking.NewMatchOrder(nil))
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestQuery_FinishedOrder(t *testing.T) {
	c := newCoordinator(t, []extension.Handler{
		staticHandler("h2", 3, "Notes"),
		staticHandler("h1", 5, "Calculator"),
	}, WithUXTimeout(time.Second))

	rec := &recorder{}
	s := c.Query(context.Background(), "ca", rec.observer())
	waitDone(t, s)

	assert.Equal(t, []string{"Calculator", "Notes"}, textsOf(rec.finished))
	assert.Equal(t, []string{"Calculator", "Notes"}, textsOf(s.Results()))
	assert.False(t, s.IsRunning())
	assert.Equal(t, 1, rec.count("started"))
	assert.Equal(t, 1, rec.count("finished"))
}

func TestQuery_ResultsReadyFiresAtTimeoutWithPartialResults(t *testing.T) {
	release := make(chan struct{})
	slow := &funcHandler{name: "slow", fn: func(ctx context.Context, q extension.Query) error {
		<-release
		q.AddMatch(&models.Item{ID: "late", Text: "Late"}, 1)
		return nil
	}}
	c := newCoordinator(t, []extension.Handler{slow}, WithUXTimeout(30*time.Millisecond))

	rec := &recorder{}
	start := time.Now()
	s := c.Query(context.Background(), "x", rec.observer())
	require.Eventually(t, func() bool { return rec.count("ready") == 1 }, time.Second, time.Millisecond)

	rec.mu.Lock()
	readyAt, ready := rec.readyAt, rec.ready
	rec.mu.Unlock()
	assert.GreaterOrEqual(t, readyAt.Sub(start), 30*time.Millisecond)
	assert.Empty(t, ready, "no handler had finished")
	assert.True(t, s.IsRunning())

	close(release)
	waitDone(t, s)
	assert.Equal(t, []string{"Late"}, textsOf(rec.finished))
	assert.Equal(t, 1, rec.count("ready"))
}

func TestQuery_ResultsReadyNotEarlierWhenHandlersAreFast(t *testing.T) {
	c := newCoordinator(t, []extension.Handler{staticHandler("h", 0, "Fast")}, WithUXTimeout(40*time.Millisecond))
	rec := &recorder{}
	start := time.Now()
	s := c.Query(context.Background(), "f", rec.observer())
	waitDone(t, s)
	assert.Zero(t, rec.count("ready"))

	require.Eventually(t, func() bool { return rec.count("ready") == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.GreaterOrEqual(t, rec.readyAt.Sub(start), 40*time.Millisecond)
	assert.Equal(t, []string{"Fast"}, textsOf(rec.ready))
}

func TestSession_InvalidateDiscardsLateMatches(t *testing.T) {
	proceed := make(chan struct{})
	var added atomic.Bool
	h := &funcHandler{name: "late", fn: func(ctx context.Context, q extension.Query) error {
		q.AddMatch(&models.Item{ID: "early", Text: "Early"}, 0)
		<-proceed
		q.AddMatch(&models.Item{ID: "after", Text: "After"}, 0)
		added.Store(true)
		return nil
	}}
	c := newCoordinator(t, []extension.Handler{h}, WithUXTimeout(50*time.Millisecond))
	rec := &recorder{}
	s := c.Query(context.Background(), "a", rec.observer())
	require.Eventually(t, func() bool { return len(s.Results()) == 1 }, time.Second, time.Millisecond)

	s.Invalidate()
	assert.False(t, s.IsValid())
	before := textsOf(s.Results())
	close(proceed)
	waitDone(t, s)
	require.True(t, added.Load())

	s.AddMatch(&models.Item{ID: "direct", Text: "Direct"}, 9)
	assert.Equal(t, before, textsOf(s.Results()))
	assert.False(t, s.IsValid())
	s.Invalidate()
	assert.False(t, s.IsValid())

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.count("finished"))
	assert.Zero(t, rec.count("ready"))
}

func TestSession_ContextCancelInvalidates(t *testing.T) {
	block := &funcHandler{name: "block", fn: func(ctx context.Context, q extension.Query) error {
		<-ctx.Done()
		return nil
	}}
	c := newCoordinator(t, []extension.Handler{block})
	ctx, cancel := context.WithCancel(context.Background())
	s := c.Query(ctx, "term", nil)
	cancel()
	waitDone(t, s)
	assert.False(t, s.IsValid())
}

func TestQuery_FailingHandlersYieldNothing(t *testing.T) {
	erring := &funcHandler{name: "erring", fn: func(ctx context.Context, q extension.Query) error {
		q.AddMatch(&models.Item{ID: "partial", Text: "Partial"}, 100)
		return errors.New("backend unavailable")
	}}
	panicking := &funcHandler{name: "panicking", fn: func(ctx context.Context, q extension.Query) error {
		q.AddMatch(&models.Item{ID: "p", Text: "Boom"}, 100)
		panic("nil map")
	}}
	mt := metrics.New()
	c := newCoordinator(t, []extension.Handler{erring, staticHandler("ok", 1, "Good"), panicking}, WithMetrics(mt))

	rec := &recorder{}
	s := c.Query(context.Background(), "g", rec.observer())
	waitDone(t, s)

	assert.Equal(t, []string{"Good"}, textsOf(rec.finished))
	rt := s.Runtimes()
	require.Len(t, rt, 3)
	assert.Equal(t, "erring", rt[0].Handler)
	assert.Error(t, rt[0].Err)
	assert.False(t, rt[0].Panicked)
	assert.NoError(t, rt[1].Err)
	assert.True(t, rt[2].Panicked)
}

type hookedHandler struct {
	funcHandler
	setup, teardown atomic.Int32
}

func (h *hookedHandler) SetupSession()    { h.setup.Add(1) }
func (h *hookedHandler) TeardownSession() { h.teardown.Add(1) }

func TestQuery_SessionHooksBracketHandleQuery(t *testing.T) {
	h := &hookedHandler{}
	h.name = "hooked"
	h.fn = func(ctx context.Context, q extension.Query) error {
		if h.setup.Load() != 1 || h.teardown.Load() != 0 {
			return errors.New("hooks out of order")
		}
		panic("teardown must still run")
	}
	c := newCoordinator(t, []extension.Handler{h})
	waitDone(t, c.Query(context.Background(), "x", nil))
	assert.Equal(t, int32(1), h.setup.Load())
	assert.Equal(t, int32(1), h.teardown.Load())
}

type fallbackHandler struct{ funcHandler }

func (h *fallbackHandler) Fallbacks(term models.Term) []*models.Item {
	return []*models.Item{{ID: "web", Text: "Search the web for '" + term.Raw() + "'"}}
}

func TestQuery_FallbacksPromotedWhenEmpty(t *testing.T) {
	fb := &fallbackHandler{funcHandler{name: "web", fn: func(context.Context, extension.Query) error { return nil }}}
	c := newCoordinator(t, []extension.Handler{fb})

	s := c.Query(context.Background(), "zzz", nil)
	waitDone(t, s)
	assert.True(t, s.FallbacksPromoted())
	assert.Equal(t, []string{"Search the web for 'zzz'"}, textsOf(s.Results()))

	c2 := newCoordinator(t, []extension.Handler{fb, staticHandler("apps", 0, "Zzz")})
	s2 := c2.Query(context.Background(), "zzz", nil)
	waitDone(t, s2)
	assert.False(t, s2.FallbacksPromoted())
	assert.Equal(t, []string{"Zzz"}, textsOf(s2.Results()))
	assert.Len(t, s2.Fallbacks(), 1)
}

func TestQuery_Dedup(t *testing.T) {
	shared := &models.Item{ID: "shared", Text: "Shared"}
	mk := func(name string, score int16) *funcHandler {
		return &funcHandler{name: name, fn: func(ctx context.Context, q extension.Query) error {
			q.AddMatch(shared, score)
			return nil
		}}
	}
	handlers := []extension.Handler{mk("a", 1), mk("b", 7)}

	s := newCoordinator(t, handlers).Query(context.Background(), "s", nil)
	waitDone(t, s)
	assert.Len(t, s.Results(), 2)

	s = newCoordinator(t, handlers, WithDedup(DedupByID)).Query(context.Background(), "s", nil)
	waitDone(t, s)
	require.Len(t, s.Results(), 1)
	assert.Equal(t, int16(7), s.Results()[0].Score)
}

func TestQuery_ResultsChangedIsRateLimited(t *testing.T) {
	stop := make(chan struct{})
	streaming := &funcHandler{name: "stream", fn: func(ctx context.Context, q extension.Query) error {
		for i := 0; ; i++ {
			select {
			case <-stop:
				return nil
			case <-time.After(2 * time.Millisecond):
				q.AddMatch(&models.Item{ID: string(rune('a' + i%26)), Text: "item"}, 0)
			}
		}
	}}
	c := newCoordinator(t, []extension.Handler{streaming},
		WithUXTimeout(10*time.Millisecond), WithNotifyInterval(50*time.Millisecond))
	rec := &recorder{}
	s := c.Query(context.Background(), "i", rec.observer())
	time.Sleep(180 * time.Millisecond)
	close(stop)
	waitDone(t, s)

	changed := rec.count("changed")
	assert.GreaterOrEqual(t, changed, 1)
	assert.LessOrEqual(t, changed, 4, "at most one event per interval")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "finished", rec.events[len(rec.events)-1], "no event after finished")
	assert.Equal(t, []string{"started", "ready"}, rec.events[:2])
}

func TestQuery_NoHandlers(t *testing.T) {
	c := newCoordinator(t, nil)
	rec := &recorder{}
	s := c.Query(context.Background(), "anything", rec.observer())
	waitDone(t, s)
	assert.Empty(t, s.Results())
	assert.Equal(t, 1, rec.count("finished"))
}

func TestQuery_ConcurrentHandlersAllContribute(t *testing.T) {
	var handlers []extension.Handler
	for i := 0; i < 20; i++ {
		handlers = append(handlers, staticHandler(string(rune('A'+i)), int16(i), string(rune('A'+i))))
	}
	c := newCoordinator(t, handlers, WithPoolSize(3))
	s := c.Query(context.Background(), "x", nil)
	waitDone(t, s)
	got := s.Results()
	require.Len(t, got, 20)
	assert.Equal(t, "T", got[0].Item.Text)
	assert.Equal(t, "A", got[19].Item.Text)
}

func TestQuery_DoesNotBlockWhenPoolIsSaturated(t *testing.T) {
	release := make(chan struct{})
	slow := &funcHandler{name: "slow", fn: func(ctx context.Context, q extension.Query) error {
		<-release
		return nil
	}}
	c := newCoordinator(t, []extension.Handler{slow, staticHandler("fast", 1, "Notes")},
		WithPoolSize(2), WithUXTimeout(time.Hour))
	t.Cleanup(func() { close(release) })

	for i := 0; i < 6; i++ {
		returned := make(chan *Session, 1)
		go func() { returned <- c.Query(context.Background(), "no", nil) }()
		select {
		case s := <-returned:
			s.Invalidate()
		case <-time.After(time.Second):
			t.Fatalf("query %d blocked the caller with every worker held by a slow handler", i)
		}
	}
}

type usageRecorder struct {
	items []string
}

func (r *usageRecorder) RecordActivation(ctx context.Context, item *models.Item) error {
	r.items = append(r.items, item.ID)
	return nil
}

func TestSession_Activate(t *testing.T) {
	var ran atomic.Bool
	h := &funcHandler{name: "apps", fn: func(ctx context.Context, q extension.Query) error {
		q.AddMatch(&models.Item{ID: "run", Text: "Runnable", Action: &models.FuncAction{
			Label: "Run", Fn: func(context.Context) error { ran.Store(true); return nil },
		}}, 2)
		q.AddMatch(&models.Item{ID: "inert", Text: "Inert"}, 1)
		return nil
	}}
	usage := &usageRecorder{}
	c := newCoordinator(t, []extension.Handler{h}, WithRecorder(usage))
	s := c.Query(context.Background(), "r", nil)
	waitDone(t, s)

	require.NoError(t, s.Activate(context.Background(), 0))
	assert.True(t, ran.Load())
	assert.Equal(t, []string{"run"}, usage.items)

	assert.ErrorIs(t, s.Activate(context.Background(), 1), ErrNoAction)
	assert.ErrorIs(t, s.Activate(context.Background(), 5), ErrNoSuchResult)
}

func TestParseDedupPolicy(t *testing.T) {
	p, err := ParseDedupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DedupNone, p)
	p, err = ParseDedupPolicy("id")
	require.NoError(t, err)
	assert.Equal(t, DedupByID, p)
	_, err = ParseDedupPolicy("fuzzy")
	assert.Error(t, err)
}
