// Package applications provides the desktop entry launcher: it indexes .desktop files
// below a set of root directories and rebuilds whenever they change.
package applications

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/extract"
	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/indexer"
	"github.com/hyperjump/yobidashi/internal/pathset"
	"github.com/hyperjump/yobidashi/internal/watcher"
)

// maxParallelRoots bounds how many roots are scanned at once.
const maxParallelRoots = 4

// DefaultRoots returns the XDG application directories, user directory first.
func DefaultRoots() []string {
	var roots []string
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		roots = append(roots, filepath.Join(dataHome, "applications"))
	}
	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(dataDirs, string(os.PathListSeparator)) {
		if d != "" {
			roots = append(roots, filepath.Join(d, "applications"))
		}
	}
	return roots
}

// Provider answers queries with installed applications.
type Provider struct {
	*extension.IndexedHandler

	paths      *pathset.Set
	watcher    *watcher.Watcher
	extractor  *extract.Extractor
	extensions []string
	logger     *zap.Logger
}

type settings struct {
	logger      *zap.Logger
	extractor   *extract.Extractor
	extensions  []string
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

// WithExtensions sets which file extensions are parsed; defaults to .desktop.
func WithExtensions(exts ...string) Option {
	return func(s *settings) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithUpdateDelay sets how long the roots must be quiet before a rebuild.
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

// New returns a provider scanning roots. Nil roots means DefaultRoots.
func New(roots []string, opts ...Option) *Provider {
	s := settings{
		logger:     zap.NewNop(),
		extractor:  extract.NewExtractor(),
		extensions: []string{extract.KindDesktop},
		delay:      watcher.DefaultDelay,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if roots == nil {
		roots = DefaultRoots()
	}

	p := &Provider{
		paths:      pathset.New(roots...),
		extractor:  s.extractor,
		extensions: s.extensions,
		logger:     s.logger.With(zap.String("provider", extract.ProviderApplications)),
	}
	source := indexer.SourceFunc{SourceName: extract.ProviderApplications, ScanFunc: p.scan}
	idx := index.New(append([]index.Option{index.WithLogger(s.logger)}, s.indexOpts...)...)
	manager := indexer.NewManager(source, idx, append([]indexer.Option{indexer.WithLogger(s.logger)}, s.managerOpts...)...)
	p.IndexedHandler = extension.NewIndexedHandler(source, idx, manager,
		append([]extension.IndexedOption{extension.WithLogger(s.logger)}, s.handlerOpts...)...)
	p.watcher = watcher.NewWatcher(p.paths.List(), p.onChange,
		watcher.WithDelay(s.delay),
		watcher.WithExtensions(s.extensions...),
		watcher.WithLogger(s.logger),
	)
	return p
}

// Start begins watching the roots and triggers the first index build.
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
	roots := p.paths.List()
	sink.Status("Indexing applications in " + strings.Join(roots, ", ") + " …")
	return indexer.ScanRoots(ctx, roots, maxParallelRoots, func(ctx context.Context, root string) error {
		_, err := indexer.WalkDirectory(ctx, sink, root, p.extensions, func(path string) error {
			items, err := p.extractor.Extract(path)
			if err != nil {
				if errors.Is(err, extract.ErrHidden) || errors.Is(err, extract.ErrNotApplication) {
					return nil
				}
				return err
			}
			for _, it := range items {
				sink.Add(it)
			}
			return nil
		})
		return err
	})
}

// Paths returns the scanned roots.
func (p *Provider) Paths() []string { return p.paths.List() }

// AddPath adds a root and rebuilds. Roots superseded by path are returned.
func (p *Provider) AddPath(path string) ([]string, error) {
	removed, err := p.paths.Add(path)
	if err != nil {
		return nil, err
	}
	for _, r := range removed {
		_ = p.watcher.RemoveDirectory(r)
	}
	if err := p.watcher.AddDirectory(path); err != nil {
		p.logger.Warn("watch added path", zap.String("path", path), zap.Error(err))
	}
	return removed, p.UpdateIndex()
}

// RemovePath drops a root and rebuilds.
func (p *Provider) RemovePath(path string) error {
	if err := p.paths.Remove(path); err != nil {
		return err
	}
	_ = p.watcher.RemoveDirectory(path)
	return p.UpdateIndex()
}

// RestorePaths resets the roots to DefaultRoots and rebuilds.
func (p *Provider) RestorePaths() error {
	p.paths.Restore(DefaultRoots())
	if err := p.watcher.SetRoots(p.paths.List()); err != nil {
		p.logger.Warn("watch restored paths", zap.Error(err))
	}
	return p.UpdateIndex()
}

// Close stops watching and shuts the indexer down.
func (p *Provider) Close(ctx context.Context) error {
	p.watcher.Stop()
	return p.IndexedHandler.Close(ctx)
}
