package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/acquire"
	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/config"
	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/llm"
	"github.com/abhisek/assessgen/internal/platform/cache"
	"github.com/abhisek/assessgen/internal/platform/logger"
	"github.com/abhisek/assessgen/internal/questiongen"
	"github.com/abhisek/assessgen/internal/store"
	"github.com/abhisek/assessgen/internal/store/pgstore"
	"github.com/abhisek/assessgen/internal/tracing"
)

// runtime holds the dependencies shared by the commands that run the
// pipeline.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	catalog  *catalog.Catalog
	store    *store.Store
	pg       *pgstore.DB
	cache    *cache.Cache
	provider llm.Provider
	shutdown tracing.Shutdown
}

// newRuntime loads configuration, applies global flags and opens the store,
// the optional Postgres and Redis connections and the LLM provider.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("log"); v != "" {
		cfg.Log.Mode = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetBool("trace"); v {
		cfg.Trace.Enabled = true
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.CatalogPath = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: log}

	rt.shutdown, err = tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Trace.Enabled,
		Version:     version,
		SampleRatio: cfg.Trace.SampleRatio,
	}, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	rt.catalog, err = catalog.LoadOrDefault(cfg.CatalogPath)
	if err != nil {
		rt.Close()
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.Database.Path)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	rt.store, err = store.Open(dbPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Database.URL != "" {
		rt.pg, err = pgstore.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
	}

	if cfg.Cache.URL != "" {
		rt.cache, err = cache.New(ctx, cfg.Cache.URL, cfg.Cache.Prefix)
		if err != nil {
			// The cache only saves repeated page fetches.
			log.Warn("snippet cache unavailable, continuing without it", zap.Error(err))
			rt.cache = nil
		}
	}

	rt.provider, err = llm.NewProviderFromEnv(ctx, rt.store.EventRepo(), log.Named("llm"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Enrichment will use fallbacks and question generation will be unavailable.")
		rt.provider = nil
	}
	return rt, nil
}

// assessmentRepo prefers Postgres when configured.
func (rt *runtime) assessmentRepo() store.AssessmentRepo {
	if rt.pg != nil {
		return rt.pg.AssessmentRepo()
	}
	return rt.store.AssessmentRepo()
}

func (rt *runtime) enricher() *enrich.Aggregator {
	var source enrich.ContentSource
	if rt.cfg.Acquire.Enabled {
		acfg := acquire.DefaultConfig()
		if rt.cfg.Acquire.SearchURL != "" {
			acfg.SearchURL = rt.cfg.Acquire.SearchURL
		}
		if rt.cfg.Acquire.FallbackURL != "" {
			acfg.FallbackURL = rt.cfg.Acquire.FallbackURL
		}
		if rt.cfg.Acquire.Concurrency > 0 {
			acfg.Concurrency = rt.cfg.Acquire.Concurrency
		}

		var opts []acquire.Option
		if rt.cache != nil {
			opts = append(opts, acquire.WithCache(rt.cache))
		}
		source = acquire.New(acfg, rt.catalog.Acquire, rt.logger.Named("acquire"), opts...)
	}
	return enrich.NewAggregator(rt.provider, source, rt.catalog, rt.logger.Named("enrich"))
}

func (rt *runtime) service() (*assessment.Service, error) {
	planner, err := questiongen.NewPlanner(rt.catalog)
	if err != nil {
		return nil, err
	}

	gcfg := questiongen.DefaultConfig()
	if g := rt.cfg.Generation; g.BatchSize > 0 {
		gcfg.BatchSize = g.BatchSize
	}
	if g := rt.cfg.Generation; g.MaxAttempts > 0 {
		gcfg.MaxAttempts = g.MaxAttempts
	}
	if g := rt.cfg.Generation; g.BaseDelay > 0 {
		gcfg.BaseDelay = g.BaseDelay
	}
	if g := rt.cfg.Generation; g.MaxTopUpBatches >= 0 {
		gcfg.MaxTopUpBatches = g.MaxTopUpBatches
	}
	gen := questiongen.New(rt.provider, gcfg, rt.logger.Named("questiongen"))

	return assessment.New(rt.enricher(), planner, gen, rt.assessmentRepo(), rt.logger.Named("assessment")), nil
}

func (rt *runtime) Close() {
	if rt.shutdown != nil {
		if err := rt.shutdown(context.Background()); err != nil {
			rt.logger.Warn("flush traces", zap.Error(err))
		}
	}
	if rt.cache != nil {
		rt.cache.Close()
	}
	if rt.pg != nil {
		rt.pg.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	_ = rt.logger.Sync()
}
