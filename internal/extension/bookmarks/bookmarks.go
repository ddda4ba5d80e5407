// Package bookmarks indexes Chromium-family browser bookmarks.
package bookmarks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/extract"
	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/indexer"
	"github.com/hyperjump/yobidashi/internal/watcher"
)

// browserProfiles are checked in order by DefaultPath, relative to the user config dir.
var browserProfiles = []string{
	"chromium/Default/Bookmarks",
	"google-chrome/Default/Bookmarks",
	"BraveSoftware/Brave-Browser/Default/Bookmarks",
	"vivaldi/Default/Bookmarks",
}

// DefaultPath returns the first existing bookmarks file of a known browser, or "".
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, rel := range browserProfiles {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// Provider answers queries with bookmarks from one Bookmarks file.
type Provider struct {
	*extension.IndexedHandler

	mu        sync.RWMutex
	path      string
	watcher   *watcher.Watcher
	extractor *extract.Extractor
	logger    *zap.Logger
}

type settings struct {
	logger      *zap.Logger
	extractor   *extract.Extractor
	delay       time.Duration
	indexOpts   []index.Option
	managerOpts []indexer.Option
	handlerOpts []extension.IndexedOption
}

// Option configures a Provider.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *settings) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithUpdateDelay sets how long the file must be quiet before a rebuild.
func WithUpdateDelay(d time.Duration) Option {
	return func(s *settings) { s.delay = d }
}

// WithIndexOptions passes options to the provider's OfflineIndex.
func WithIndexOptions(opts ...index.Option) Option {
	return func(s *settings) { s.indexOpts = append(s.indexOpts, opts...) }
}

// WithManagerOptions passes options to the provider's indexer Manager.
func WithManagerOptions(opts ...indexer.Option) Option {
	return func(s *settings) { s.managerOpts = append(s.managerOpts, opts...) }
}

// WithHandlerOptions passes options to the query handler.
func WithHandlerOptions(opts ...extension.IndexedOption) Option {
	return func(s *settings) { s.handlerOpts = append(s.handlerOpts, opts...) }
}

// New returns a provider reading path. An empty path means DefaultPath.
func New(path string, opts ...Option) *Provider {
	s := settings{
		logger:    zap.NewNop(),
		extractor: extract.NewExtractor(),
		delay:     watcher.DefaultDelay,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if path == "" {
		path = DefaultPath()
	}

	p := &Provider{
		path:      path,
		extractor: s.extractor,
		logger:    s.logger.With(zap.String("provider", extract.ProviderBookmarks)),
	}
	source := indexer.SourceFunc{SourceName: extract.ProviderBookmarks, ScanFunc: p.scan}
	idx := index.New(append([]index.Option{index.WithLogger(s.logger)}, s.indexOpts...)...)
	manager := indexer.NewManager(source, idx, append([]indexer.Option{indexer.WithLogger(s.logger)}, s.managerOpts...)...)
	p.IndexedHandler = extension.NewIndexedHandler(source, idx, manager,
		append([]extension.IndexedOption{extension.WithLogger(s.logger)}, s.handlerOpts...)...)

	var roots []string
	if path != "" {
		roots = []string{path}
	}
	p.watcher = watcher.NewWatcher(roots, p.onChange, watcher.WithDelay(s.delay), watcher.WithLogger(s.logger))
	return p
}

// Path returns the bookmarks file in use.
func (p *Provider) Path() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path
}

// SetPath switches to another bookmarks file and rebuilds.
func (p *Provider) SetPath(path string) error {
	p.mu.Lock()
	old := p.path
	p.path = path
	p.mu.Unlock()
	if old != "" {
		_ = p.watcher.RemoveDirectory(old)
	}
	if path != "" {
		if err := p.watcher.AddDirectory(path); err != nil {
			p.logger.Warn("watch bookmarks file", zap.String("path", path), zap.Error(err))
		}
	}
	return p.UpdateIndex()
}

// Start begins watching the file and triggers the first index build.
func (p *Provider) Start(ctx context.Context) error {
	if err := p.watcher.Start(ctx); err != nil {
		return err
	}
	return p.UpdateIndex()
}

func (p *Provider) onChange() {
	if err := p.UpdateIndex(); err != nil && !errors.Is(err, indexer.ErrClosed) {
		p.logger.Warn("index update failed", zap.Error(err))
	}
}

func (p *Provider) scan(ctx context.Context, sink indexer.Sink) error {
	path := p.Path()
	if path == "" {
		sink.Status("No bookmarks file found.")
		return nil
	}
	sink.Status("Indexing bookmarks in " + path + " …")
	content, err := os.ReadFile(path)
	if err != nil {
		sink.Skip(path, err)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	items, err := p.extractor.ExtractBytes(path, content, extract.KindBookmarks)
	if err != nil {
		sink.Skip(path, err)
		return nil
	}
	for _, it := range items {
		if sink.Aborted() {
			return nil
		}
		sink.Add(it)
	}
	return nil
}

// Close stops watching and shuts the indexer down.
func (p *Provider) Close(ctx context.Context) error {
	p.watcher.Stop()
	return p.IndexedHandler.Close(ctx)
}
