package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ponyvote/ballotcheck/internal/cache"
	"github.com/ponyvote/ballotcheck/internal/checker"
	"github.com/ponyvote/ballotcheck/internal/labels"
	"github.com/ponyvote/ballotcheck/internal/logging"
	"github.com/ponyvote/ballotcheck/internal/metrics"
	"github.com/ponyvote/ballotcheck/internal/model"
	"github.com/ponyvote/ballotcheck/internal/provider"
	"github.com/ponyvote/ballotcheck/internal/resolve"
	"github.com/ponyvote/ballotcheck/internal/rules"
	"github.com/ponyvote/ballotcheck/internal/store"
	"github.com/ponyvote/ballotcheck/internal/worker"
)

// loadConfig layers the config file, env and flags over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// app holds the wired components for one command invocation
type app struct {
	cfg     *model.Config
	logger  zerolog.Logger
	store   store.Store
	checker *checker.Checker
	metrics *metrics.Metrics
	cancel  context.CancelFunc
}

// newApp builds the store, cache, providers and checker from the config.
// The returned app must be closed.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format), "ballotcheck")

	ctx, cancel := context.WithCancel(ctx)
	a := &app{cfg: cfg, logger: logger, cancel: cancel}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger); err != nil {
				logger.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	a.store, err = openStore(ctx, cfg.Store, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	var primary provider.Primary
	if cfg.YouTube.APIKey != "" {
		primary = provider.NewYouTube(cfg.YouTube, logger)
	} else {
		logger.Warn().Msg("no YouTube API key configured, YouTube links will be unavailable")
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	resolver := resolve.New(a.store, resolve.Options{
		Cache:    cache.NewMetadataCache(cache.New(ctx, cfg.Cache, logger), cfg.Cache.MemoryTTL, logger),
		Primary:  primary,
		Generic:  provider.NewYTDLP(cfg.Extractor, nil, logger),
		Throttle: limiter,
		Metrics:  a.metrics,
		Logger:   logger,
	})

	source := labels.NewSource(a.store, logger)
	if _, err := source.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("using default labels")
	}

	a.checker = checker.New(a.store, checker.Options{
		Resolver:     resolver,
		Engine:       rules.NewEngine(cfg.Rules),
		Labels:       source,
		Metrics:      a.metrics,
		Logger:       logger,
		EntryFetches: cfg.Concurrency.EntryFetches,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg model.StoreConfig, logger zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("store.database_url is required for the postgres driver")
		}
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(pool)
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := pg.Migrate(migrateCtx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing store")
	}
	a.cancel()
}
