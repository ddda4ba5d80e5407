// Package pathset maintains the root directories a filesystem-backed provider scans.
package pathset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	ErrAlreadyIndexed         = errors.New("path is already indexed")
	ErrNotFound               = errors.New("path does not exist")
	ErrNotADirectory          = errors.New("path is not a directory")
	ErrSubdirectoryOfExisting = errors.New("path is a subdirectory of an indexed path")
	ErrNotIndexed             = errors.New("path is not indexed")
)

// PathError describes a rejected path edit. Root is set when the edit conflicts with an
// existing root.
type PathError struct {
	Path string
	Root string
	Err  error
}

func (e *PathError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Path, e.Err, e.Root)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Set is a set of non-overlapping root directories. Safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	roots []string
}

// New returns a set holding roots. Roots are cleaned and nested entries collapsed into their
// ancestors; they are not checked against the filesystem so a configured root that is
// temporarily missing is kept.
func New(roots ...string) *Set {
	s := &Set{}
	s.roots = collapse(roots)
	return s
}

// List returns the roots in sorted order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

// Len returns the number of roots.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roots)
}

// Contains reports whether path is one of the roots.
func (s *Set) Contains(path string) bool {
	p := clean(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := slices.BinarySearch(s.roots, p)
	return ok
}

// Add validates path and adds it. Existing roots below path are superseded by it and returned
// as removed. Errors are *PathError values wrapping one of the package sentinels.
func (s *Set) Add(path string) (removed []string, err error) {
	p := clean(path)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &PathError{Path: p, Err: ErrNotFound}
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return nil, &PathError{Path: p, Err: ErrNotADirectory}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.roots[:0:0]
	for _, root := range s.roots {
		switch {
		case root == p:
			return nil, &PathError{Path: p, Root: root, Err: ErrAlreadyIndexed}
		case isWithin(p, root):
			return nil, &PathError{Path: p, Root: root, Err: ErrSubdirectoryOfExisting}
		case isWithin(root, p):
			removed = append(removed, root)
		default:
			kept = append(kept, root)
		}
	}
	kept = append(kept, p)
	slices.Sort(kept)
	s.roots = kept
	return removed, nil
}

// Remove drops path from the set.
func (s *Set) Remove(path string) error {
	p := clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := slices.BinarySearch(s.roots, p)
	if !ok {
		return &PathError{Path: p, Err: ErrNotIndexed}
	}
	s.roots = slices.Delete(slices.Clone(s.roots), i, i+1)
	return nil
}

// Restore replaces the set with defaults.
func (s *Set) Restore(defaults []string) {
	roots := collapse(defaults)
	s.mu.Lock()
	s.roots = roots
	s.mu.Unlock()
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// isWithin reports whether path lies strictly below root.
func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func collapse(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		cleaned = append(cleaned, clean(r))
	}
	slices.Sort(cleaned)
	cleaned = slices.Compact(cleaned)

	out := cleaned[:0]
	for _, r := range cleaned {
		if !slices.ContainsFunc(out, func(root string) bool { return isWithin(r, root) }) {
			out = append(out, r)
		}
	}
	return out
}
