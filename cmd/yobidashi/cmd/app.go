package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yobidashi/internal/config"
	"github.com/hyperjump/yobidashi/internal/extension"
	"github.com/hyperjump/yobidashi/internal/extension/applications"
	"github.com/hyperjump/yobidashi/internal/extension/bookmarks"
	"github.com/hyperjump/yobidashi/internal/extension/websearch"
	"github.com/hyperjump/yobidashi/internal/index"
	"github.com/hyperjump/yobidashi/internal/indexer"
	"github.com/hyperjump/yobidashi/internal/metrics"
	"github.com/hyperjump/yobidashi/internal/ranking"
	"github.com/hyperjump/yobidashi/internal/search"
	"github.com/hyperjump/yobidashi/internal/storage"
	"github.com/hyperjump/yobidashi/pkg/utils"
)

const shutdownTimeout = 5 * time.Second

// indexedProvider is what the status command needs from an index-backed provider.
type indexedProvider interface {
	extension.Handler
	Index() *index.OfflineIndex
	Manager() *indexer.Manager
	Fuzzy() bool
	Close(ctx context.Context) error
}

// app wires configuration, storage, providers and the coordinator for one CLI invocation.
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   *storage.SQLiteStorage
	order   *ranking.MatchOrder

	apps      *applications.Provider
	bookmarks *bookmarks.Provider
	web       *websearch.Provider
	providers []indexedProvider

	coordinator *search.Coordinator

	mu     sync.Mutex
	status map[string]string
}

func newApp(ctx context.Context, cfgPath string, debug bool) (*app, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(debug || cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a := &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		metrics: metrics.New(),
		status:  make(map[string]string),
	}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, storage.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open usage database: %w", err)
	}
	a.store = store

	weights := ranking.NewWeights(store)
	if err := weights.Update(ctx); err != nil {
		a.logger.Warn("load usage weights", zap.Error(err))
	}
	a.order = ranking.NewMatchOrder(weights)

	managerOpts := []indexer.Option{indexer.WithStatus(a.setStatus), indexer.WithMetrics(a.metrics)}
	var handlers []extension.Handler
	if cfg.Applications.EnabledOrDefault() {
		a.apps = applications.New(cfg.Applications.Paths,
			applications.WithLogger(a.logger),
			applications.WithExtensions(cfg.Applications.Extensions...),
			applications.WithUpdateDelay(cfg.Applications.UpdateDelay.Std()),
			applications.WithIndexOptions(a.indexOptions(cfg.Applications.Fuzzy)...),
			applications.WithManagerOptions(managerOpts...),
		)
		a.providers = append(a.providers, a.apps)
		handlers = append(handlers, a.apps)
	}
	if cfg.Bookmarks.EnabledOrDefault() {
		a.bookmarks = bookmarks.New(cfg.Bookmarks.Path,
			bookmarks.WithLogger(a.logger),
			bookmarks.WithUpdateDelay(cfg.Bookmarks.UpdateDelay.Std()),
			bookmarks.WithIndexOptions(a.indexOptions(cfg.Bookmarks.Fuzzy)...),
			bookmarks.WithManagerOptions(managerOpts...),
		)
		a.providers = append(a.providers, a.bookmarks)
		handlers = append(handlers, a.bookmarks)
	}
	engines := make([]websearch.Engine, 0, len(cfg.WebSearch.Engines))
	for _, e := range cfg.WebSearch.Engines {
		engines = append(engines, websearch.Engine{Name: e.Name, URL: e.URL, Trigger: e.Trigger})
	}
	a.web = websearch.New(engines)
	handlers = append(handlers, a.web)

	dedup, err := search.ParseDedupPolicy(cfg.Query.Dedup)
	if err != nil {
		return err
	}
	a.coordinator, err = search.NewCoordinator(handlers, a.order,
		search.WithLogger(a.logger),
		search.WithUXTimeout(cfg.Query.UXTimeout.Std()),
		search.WithNotifyInterval(cfg.Query.NotifyInterval.Std()),
		search.WithPoolSize(cfg.Query.PoolSize),
		search.WithDedup(dedup),
		search.WithMetrics(a.metrics),
		search.WithRecorder(store),
	)
	return err
}

func (a *app) indexOptions(fuzzy bool) []index.Option {
	cacheSize := a.cfg.Index.CacheSize
	if cacheSize < 0 {
		cacheSize = 0
	}
	return []index.Option{
		index.WithBackend(index.Backend(a.cfg.Index.Backend)),
		index.WithMaxDistance(a.cfg.Index.MaxDistance),
		index.WithCacheSize(cacheSize),
		index.WithFuzzy(fuzzy),
	}
}

// start launches every provider's watcher and first index build. When wait is set it
// blocks until the builds are done.
func (a *app) start(ctx context.Context, wait bool) error {
	if a.apps != nil {
		if err := a.apps.Start(ctx); err != nil {
			return fmt.Errorf("start applications: %w", err)
		}
	}
	if a.bookmarks != nil {
		if err := a.bookmarks.Start(ctx); err != nil {
			return fmt.Errorf("start bookmarks: %w", err)
		}
	}
	if !wait {
		return nil
	}
	for _, p := range a.providers {
		if err := p.Manager().Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) setStatus(provider, text string) {
	a.mu.Lock()
	a.status[provider] = text
	a.mu.Unlock()
	a.logger.Debug("provider status", zap.String("provider", provider), zap.String("status", text))
}

func (a *app) statusText(provider string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status[provider]
}

// weight exposes usage weights to result rendering.
func (a *app) weight(id string) float64 {
	return a.order.Weights().Weight(id)
}

// provider returns the index-backed provider called name.
func (a *app) provider(name string) (indexedProvider, error) {
	for _, p := range a.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown provider %q (have %v)", name, names)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.coordinator != nil {
		a.coordinator.Close()
	}
	var errs []error
	for _, p := range a.providers {
		errs = append(errs, p.Close(ctx))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}
