package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yobidashi/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	items   []models.Item
	skipped []string
	aborted bool
}

func (s *recordingSink) Add(item models.Item) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

func (s *recordingSink) Skip(entry string, err error) {
	s.mu.Lock()
	s.skipped = append(s.skipped, filepath.Base(entry))
	s.mu.Unlock()
}

func (s *recordingSink) Status(string) {}
func (s *recordingSink) Aborted() bool { return s.aborted }

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".desktop", []string{".desktop"}, true},
		{".DESKTOP", []string{"desktop"}, true},
		{".txt", []string{".desktop"}, false},
		{"", []string{".desktop"}, false},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestWalkDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"a.desktop", "sub/b.desktop", "c.txt", "bad.desktop"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	sink := &recordingSink{}
	var visited []string
	n, err := WalkDirectory(context.Background(), sink, dir, []string{".desktop"}, func(path string) error {
		if filepath.Base(path) == "bad.desktop" {
			return errors.New("malformed")
		}
		visited = append(visited, filepath.Base(path))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	sort.Strings(visited)
	assert.Equal(t, []string{"a.desktop", "b.desktop"}, visited)
	assert.Equal(t, []string{"bad.desktop"}, sink.skipped)
}

func TestWalkDirectory_MissingRootIsSkipped(t *testing.T) {
	sink := &recordingSink{}
	n, err := WalkDirectory(context.Background(), sink, filepath.Join(t.TempDir(), "nope"), nil, func(string) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"nope"}, sink.skipped)
}

func TestWalkDirectory_StopsWhenAborted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.desktop"), []byte("x"), 0o600))
	sink := &recordingSink{aborted: true}
	n, err := WalkDirectory(context.Background(), sink, dir, nil, func(string) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScanRoots(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	err := ScanRoots(context.Background(), []string{"/a", "/b", "/c"}, 2, func(ctx context.Context, root string) error {
		mu.Lock()
		seen = append(seen, root)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	sort.Strings(seen)
	assert.Equal(t, []string{"/a", "/b", "/c"}, seen)

	boom := errors.New("boom")
	err = ScanRoots(context.Background(), []string{"/a"}, 0, func(context.Context, string) error { return boom })
	assert.ErrorIs(t, err, boom)
}
