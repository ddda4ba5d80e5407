package extension

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/indexer"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
)

type testQuery struct {
	term    models.Term
	valid   atomic.Bool
	batches [][]models.Candidate
}

func newTestQuery(raw string) *testQuery {
	q := &testQuery{term: models.NewTerm(raw)}
	q.valid.Store(true)
	return q
}

func (q *testQuery) Term() models.Term { return q.term }
func (q *testQuery) AddMatch(item *models.Item, score int16) {
	q.AddMatches([]models.Candidate{{Item: item, Score: score}})
}
func (q *testQuery) AddMatches(c []models.Candidate) { q.batches = append(q.batches, c) }
func (q *testQuery) IsValid() bool                   { return q.valid.Load() }

func (q *testQuery) candidates() []models.Candidate {
	var out []models.Candidate
	for _, b := range q.batches {
		out = append(out, b...)
	}
	return out
}

func newHandler(t *testing.T, texts []string, opts ...IndexedOption) *IndexedHandler {
	t.Helper()
	src := indexer.SourceFunc{SourceName: "apps", ScanFunc: func(ctx context.Context, sink indexer.Sink) error {
		for i, text := range texts {
			sink.Add(models.Item{ID: fmt.Sprintf("apps:%d", i), Text: text, Provider: "apps"})
		}
		return nil
	}}
	idx := index.New()
	h := NewIndexedHandler(src, idx, indexer.NewManager(src, idx), opts...)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	require.NoError(t, h.UpdateIndex())
	require.NoError(t, h.Manager().Wait(context.Background()))
	return h
}

func TestIndexedHandler_ScoresMatches(t *testing.T) {
	h := newHandler(t, []string{"Calculator", "Calendar", "Notes"})
	assert.Equal(t, "apps", h.Name())

	q := newTestQuery("calc")
	require.NoError(t, h.HandleQuery(context.Background(), q))
	got := q.candidates()
	require.Len(t, got, 1)
	assert.Equal(t, "Calculator", got[0].Item.Text)
	assert.Equal(t, ranking.DefaultScorer{}.Score(q.Term(), got[0].Item), got[0].Score)
	assert.Len(t, q.batches, 1, "matches are added in one batch")
}

func TestIndexedHandler_CustomScorer(t *testing.T) {
	h := newHandler(t, []string{"Calculator"}, WithScorer(ranking.ScorerFunc(func(models.Term, *models.Item) int16 { return 7 })))
	q := newTestQuery("ca")
	require.NoError(t, h.HandleQuery(context.Background(), q))
	require.Len(t, q.candidates(), 1)
	assert.Equal(t, int16(7), q.candidates()[0].Score)
}

func TestIndexedHandler_InvalidQueryAddsNothing(t *testing.T) {
	h := newHandler(t, []string{"Calculator", "Calendar"})
	q := newTestQuery("ca")
	q.valid.Store(false)
	require.NoError(t, h.HandleQuery(context.Background(), q))
	assert.Empty(t, q.candidates())
}

func TestIndexedHandler_EmptyTerm(t *testing.T) {
	h := newHandler(t, []string{"Calculator"})
	q := newTestQuery("   ")
	require.NoError(t, h.HandleQuery(context.Background(), q))
	assert.Empty(t, q.candidates())
}

func TestIndexedHandler_SetFuzzy(t *testing.T) {
	h := newHandler(t, []string{"Firefox"})
	q := newTestQuery("fyrefox")
	require.NoError(t, h.HandleQuery(context.Background(), q))
	assert.Empty(t, q.candidates())

	h.SetFuzzy(true)
	assert.True(t, h.Fuzzy())
	q = newTestQuery("fyrefox")
	require.NoError(t, h.HandleQuery(context.Background(), q))
	require.Len(t, q.candidates(), 1)
}

func TestIndexedHandler_CloseStopsUpdates(t *testing.T) {
	h := newHandler(t, []string{"Firefox"})
	require.NoError(t, h.Close(context.Background()))
	assert.ErrorIs(t, h.UpdateIndex(), indexer.ErrClosed)
}
