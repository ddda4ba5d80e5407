package bookmarks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/models"
	"github.com/hyperjump/yobidashi/internal/ranking"
)

const bookmarksJSON = `{
  "roots": {
    "bookmark_bar": {
      "name": "Bookmarks bar", "type": "folder",
      "children": [
        {"guid": "g1", "name": "Go Documentation", "type": "url", "url": "https://go.dev/doc"},
        {"name": "Work", "type": "folder", "children": [
          {"guid": "g2", "name": "Issue Tracker", "type": "url", "url": "https://tracker.example.com"}
        ]}
      ]
    },
    "other": {"name": "Other", "type": "folder", "children": []}
  },
  "version": 1
}`

type recordingQuery struct {
	term models.Term
	got  []models.Candidate
}

func (q *recordingQuery) Term() models.Term { return q.term }
func (q *recordingQuery) AddMatch(item *models.Item, score int16) {
	q.got = append(q.got, models.Candidate{Item: item, Score: score})
}
func (q *recordingQuery) AddMatches(c []models.Candidate) { q.got = append(q.got, c...) }
func (q *recordingQuery) IsValid() bool                   { return true }

func search(t *testing.T, p *Provider, raw string) []string {
	t.Helper()
	q := &recordingQuery{term: models.NewTerm(raw)}
	require.NoError(t, p.HandleQuery(context.Background(), q))
	var out []string
	for _, c := range q.got {
		out = append(out, c.Item.Text)
	}
	return out
}

func start(t *testing.T, path string) *Provider {
	t.Helper()
	p := New(path, WithUpdateDelay(50*time.Millisecond))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Manager().Wait(context.Background()))
	return p
}

func TestProvider_IndexesBookmarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(bookmarksJSON), 0600))

	p := start(t, path)
	assert.Equal(t, path, p.Path())
	assert.Equal(t, 2, p.Index().Size())
	assert.Equal(t, []string{"Go Documentation"}, search(t, p, "go doc"))
	assert.Equal(t, []string{"Issue Tracker"}, search(t, p, "work"), "folder names are searchable")

	q := &recordingQuery{term: models.NewTerm("issue")}
	require.NoError(t, p.HandleQuery(context.Background(), q))
	require.Len(t, q.got, 1)
	action, ok := q.got[0].Item.Action.(*models.URLAction)
	require.True(t, ok)
	assert.Equal(t, "https://tracker.example.com", action.URL)
}

func TestProvider_MalformedFileKeepsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	p := start(t, path)
	assert.Equal(t, 0, p.Index().Size())
	assert.Equal(t, 1, p.Manager().LastStats().Skipped)
}

func TestProvider_ReindexesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(`{"roots":{}}`), 0600))
	p := start(t, path)
	assert.Equal(t, 0, p.Index().Size())

	require.NoError(t, os.WriteFile(path, []byte(bookmarksJSON), 0600))
	require.Eventually(t, func() bool { return p.Index().Size() == 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestProvider_SetPath(t *testing.T) {
	dir := t.TempDir()
	p := start(t, filepath.Join(dir, "missing"))
	assert.Equal(t, 0, p.Index().Size())

	other := filepath.Join(dir, "Bookmarks")
	require.NoError(t, os.WriteFile(other, []byte(bookmarksJSON), 0600))
	require.NoError(t, p.SetPath(other))
	require.NoError(t, p.Manager().Wait(context.Background()))
	assert.Equal(t, 2, p.Index().Size())
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Empty(t, DefaultPath())

	chrome := filepath.Join(dir, "google-chrome", "Default")
	require.NoError(t, os.MkdirAll(chrome, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(chrome, "Bookmarks"), []byte("{}"), 0600))
	assert.True(t, strings.HasSuffix(DefaultPath(), filepath.Join("google-chrome", "Default", "Bookmarks")))
}

func TestProvider_HandlerOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(bookmarksJSON), 0600))

	scorer := ranking.ScorerFunc(func(term models.Term, item *models.Item) int16 {
		if strings.Contains(item.Subtext, "tracker") {
			return 42
		}
		return 7
	})
	p := New(path, WithUpdateDelay(50*time.Millisecond), WithHandlerOptions(extension.WithScorer(scorer)))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Manager().Wait(context.Background()))

	q := &recordingQuery{term: models.NewTerm("issue")}
	require.NoError(t, p.HandleQuery(context.Background(), q))
	require.Len(t, q.got, 1)
	assert.Equal(t, int16(42), q.got[0].Score)
}
