package main

import (
	"context"
	"fmt"
	"log/slog"

	"longbox/internal/approval"
	"longbox/internal/comicinfo"
	"longbox/internal/comicvine"
	"longbox/internal/config"
	"longbox/internal/filename"
	"longbox/internal/library"
	"longbox/internal/logging"
	"longbox/internal/naming"
	"longbox/internal/notifications"
	"longbox/internal/seriescache"
	"longbox/internal/services/llm"
)

// app holds the collaborators behind one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *library.Catalog
	engine   *approval.Engine
	cache    *seriescache.Store
	notifier notifications.Service

	stopSweeper context.CancelFunc
}

type appOptions struct {
	// source replaces the ComicVine client.
	source approval.SeriesSource
}

func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	catalog, err := library.New(cfg.Paths.LibraryDir)
	if err != nil {
		return nil, err
	}

	source := opts.source
	if source == nil {
		client, err := comicvine.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		source = client
	}

	a := &app{cfg: cfg, logger: logger, catalog: catalog, notifier: notifications.NewService(cfg)}
	if cfg.Cache.Enabled {
		store, err := seriescache.Open(cfg.Cache.Path)
		if err != nil {
			logging.WarnWithContext(logger, "series cache unavailable; continuing without it", "cache_open_failed",
				logging.String("path", cfg.Cache.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'longbox cache clear' or delete the cache file"),
				logging.String(logging.FieldImpact, "every lookup queries ComicVine"),
			)
		} else {
			a.cache = store
			source = seriescache.Wrap(store, source, cfg.CacheTTL(), logger)
		}
	}

	writer, err := comicinfo.NewWriter(catalog)
	if err != nil {
		a.Close()
		return nil, err
	}
	renamer, err := naming.NewResolver(cfg.Naming.Template)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps := approval.Dependencies{
		Files:       catalog,
		Parser:      filename.NewParser(),
		Sources:     []approval.SeriesSource{source},
		Writer:      writer,
		Renamer:     renamer,
		Invalidator: notifications.NewInvalidator(cfg, logger),
	}
	if client, ok := llm.NewFromConfig(cfg, logger); ok {
		deps.Cleaner = llm.NewCleaner(client)
	}
	engine, err := approval.NewEngine(cfg, deps, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine

	sweepCtx, cancel := context.WithCancel(context.Background())
	a.stopSweeper = cancel
	engine.StartSweeper(sweepCtx)
	return a, nil
}

// Close stops the session sweeper, waits for background invalidations and
// releases the cache.
func (a *app) Close() {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.engine != nil {
		a.engine.Wait()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close series cache", logging.Error(err))
		}
	}
}

func (a *app) scan(ctx context.Context, targets []string) ([]string, error) {
	ids, err := a.catalog.Scan(ctx, targets...)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no .cbz archives found under %s", describeTargets(a.catalog.Root(), targets))
	}
	return ids, nil
}

func describeTargets(root string, targets []string) string {
	if len(targets) == 0 {
		return root
	}
	if len(targets) == 1 {
		return targets[0]
	}
	return fmt.Sprintf("%d paths", len(targets))
}
