package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/stores/mongostore"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/stores/redisstore"
	"github.com/goliatone/go-reports-dashboard/pkg/config"
	"github.com/goliatone/go-reports-dashboard/pkg/datasets"
	"github.com/goliatone/go-reports-dashboard/pkg/logging"
	"github.com/goliatone/go-reports-dashboard/pkg/telemetry"
)

// app holds the collaborators every command works with.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *telemetry.Prometheus
	telemetry dashboard.Telemetry
	notifier  *dashboard.BroadcastNotifier
	store     dashboard.LayoutStore
	service   *dashboard.Service

	closers []func(context.Context) error
}

func newApp(ctx context.Context, g *Globals) (*app, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	return buildApp(ctx, cfg)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  telemetry.NewPrometheus(),
		notifier: dashboard.NewBroadcastNotifier(),
	}
	a.telemetry = telemetry.Multi{a.metrics, telemetry.NewLogger(logger.Named("events"))}
	a.closers = append(a.closers, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	store, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = store
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	provider, err := buildDatasets(cfg.Datasets)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	renderer := dashboard.NewRenderer(provider,
		dashboard.WithChartCache(dashboard.NewChartCache(cfg.Charts.CacheTTL)),
		dashboard.WithChartTheme(cfg.Charts.Theme),
		dashboard.WithChartAssetsHost(cfg.Charts.AssetsHost),
		dashboard.WithRendererLogger(logger),
		dashboard.WithRendererTelemetry(a.telemetry),
	)
	a.service = dashboard.NewService(dashboard.Options{
		Store:        store,
		Datasets:     provider,
		Renderer:     renderer,
		Notifier:     a.notifier,
		Telemetry:    a.telemetry,
		Logger:       logger,
		WriteTimeout: cfg.Store.WriteTimeout,
		IdleTimeout:  cfg.Server.SessionIdleTimeout,
	})

	logger.Debug("reportctl ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("datasets", cfg.Datasets.Driver),
	)
	return a, nil
}

// Close flushes pending dashboard writes and releases connections.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.service != nil {
		if err := a.service.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (dashboard.LayoutStore, func(context.Context) error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return dashboard.NewInMemoryLayoutStore(), nil, nil
	case config.DriverMongo:
		store, disconnect, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, nil, err
		}
		return store, disconnect, nil
	case config.DriverRedis:
		store, client, err := redisstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func(context.Context) error { return client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("reportctl: unsupported store driver %q", cfg.Driver)
	}
}

func buildDatasets(cfg config.DatasetsConfig) (dashboard.DatasetProvider, error) {
	switch cfg.Driver {
	case config.DatasetsMock:
		return datasets.NewMockProvider(nil), nil
	case config.DatasetsHTTP:
		return datasets.NewHTTPClient(datasets.HTTPConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
	default:
		return nil, fmt.Errorf("reportctl: unsupported datasets driver %q", cfg.Driver)
	}
}
