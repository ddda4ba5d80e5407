package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// WalkDirectory walks dir recursively and calls fn for each regular file whose extension
// is in allowedExts (if non-empty; otherwise all files). Unreadable entries and fn errors
// are reported through sink.Skip. A missing root is skipped the same way. The walk stops
// early when ctx is cancelled or the run is aborted. Returns the number of files fn
// accepted.
func WalkDirectory(ctx context.Context, sink Sink, dir string, allowedExts []string, fn func(path string) error) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		sink.Skip(absDir, err)
		return 0, nil
	}
	if !info.IsDir() {
		sink.Skip(absDir, fmt.Errorf("not a directory: %s", absDir))
		return 0, nil
	}
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if sink.Aborted() {
			return filepath.SkipAll
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			sink.Skip(path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are visited
		finfo, statErr := os.Stat(path)
		if statErr != nil {
			sink.Skip(path, statErr)
			return nil
		}
		if !finfo.Mode().IsRegular() {
			return nil
		}
		if fnErr := fn(path); fnErr != nil {
			sink.Skip(path, fnErr)
			return nil
		}
		n++
		return nil
	})
	return n, err
}

// ScanRoots calls scan once per root, running at most limit scans concurrently. The first
// error cancels the context handed to the remaining scans.
func ScanRoots(ctx context.Context, roots []string, limit int, scan func(ctx context.Context, root string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, root := range roots {
		root := root
		g.Go(func() error {
			return scan(gctx, root)
		})
	}
	return g.Wait()
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
