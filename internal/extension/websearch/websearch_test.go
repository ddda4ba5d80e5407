package websearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yobidashi/internal/models"
)

type query struct {
	term models.Term
	got  []models.Candidate
}

func (q *query) Term() models.Term { return q.term }
func (q *query) AddMatch(item *models.Item, score int16) {
	q.got = append(q.got, models.Candidate{Item: item, Score: score})
}
func (q *query) AddMatches(c []models.Candidate) { q.got = append(q.got, c...) }
func (q *query) IsValid() bool                   { return true }

var engines = []Engine{
	{Name: "Google", URL: "https://www.google.com/search?q=%s", Trigger: "gg"},
	{Name: "Wikipedia", URL: "https://en.wikipedia.org/wiki/Special:Search?search=%s", Trigger: "wp"},
	{Name: "Broken", URL: "https://example.com"},
}

func TestFallbacks(t *testing.T) {
	p := New(engines)
	require.Len(t, p.Engines(), 2)

	items := p.Fallbacks(models.NewTerm("go generics"))
	require.Len(t, items, 2)
	assert.Equal(t, "Search Google for 'go generics'", items[0].Text)
	assert.Equal(t, "https://www.google.com/search?q=go+generics", items[0].Subtext)
	assert.Equal(t, Name, items[0].Provider)
	action, ok := items[0].Action.(*models.URLAction)
	require.True(t, ok)
	assert.Equal(t, items[0].Subtext, action.URL)

	again := p.Fallbacks(models.NewTerm("something else"))
	assert.Equal(t, items[0].ID, again[0].ID, "ids are per engine so usage accrues to the engine")

	assert.Empty(t, p.Fallbacks(models.NewTerm("   ")))
}

func TestHandleQuery_Trigger(t *testing.T) {
	p := New(engines)

	q := &query{term: models.NewTerm("wp Alan Turing")}
	require.NoError(t, p.HandleQuery(context.Background(), q))
	require.Len(t, q.got, 1)
	assert.Equal(t, "Search Wikipedia for 'Alan Turing'", q.got[0].Item.Text)
	assert.Equal(t, int16(triggerScore), q.got[0].Score)

	for _, raw := range []string{"wp", "wp   ", "alan turing", "xx alan"} {
		q := &query{term: models.NewTerm(raw)}
		require.NoError(t, p.HandleQuery(context.Background(), q))
		assert.Empty(t, q.got, raw)
	}
}
