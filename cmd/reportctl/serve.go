package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-reports-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-reports-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-reports-dashboard/pkg/config"
)

type serveCmd struct {
	Address   string `help:"Override server.address."`
	Transport string `help:"Override server.transport (fiber or http)."`
}

func (c *serveCmd) Run(ctx context.Context, g *Globals) error {
	a, err := newApp(ctx, g)
	if err != nil {
		return err
	}
	cfg := a.cfg
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	if c.Transport != "" {
		cfg.Server.Transport = c.Transport
	}
	if err := cfg.Validate(); err != nil {
		a.Close(ctx)
		return err
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		a.service.RunJanitor(gctx, cfg.Server.SessionSweepInterval)
		return nil
	})
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, a.metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		a.logger.Info("metrics listening", zap.String("address", srv.Addr), zap.String("path", cfg.Metrics.Path))
		grp.Go(func() error { return listen(gctx, srv, cfg.Server.ShutdownTimeout) })
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		mux := http.NewServeMux()
		httpapi.NewHandlers(a.service, a.telemetry, a.notifier).Mount(mux, cfg.Server.BasePath)
		srv := &http.Server{Addr: cfg.Server.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		grp.Go(func() error { return listen(gctx, srv, cfg.Server.ShutdownTimeout) })
	default:
		server := router.NewFiberAdapter()
		if err := gorouter.Register(gorouter.Config[*fiber.App]{
			Router:        server.Router(),
			Service:       a.service,
			Telemetry:     a.telemetry,
			Notifications: a.notifier,
			BasePath:      cfg.Server.BasePath,
		}); err != nil {
			a.Close(ctx)
			return err
		}
		grp.Go(func() error {
			return serveUntilDone(gctx, server, cfg.Server.Address, cfg.Server.ShutdownTimeout)
		})
	}
	a.logger.Info("report dashboard listening",
		zap.String("address", cfg.Server.Address),
		zap.String("transport", cfg.Server.Transport),
		zap.String("base_path", cfg.Server.BasePath),
	)

	serveErr := grp.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	closeErr := a.Close(shutdownCtx)
	a.logger.Info("report dashboard stopped")
	return errors.Join(serveErr, closeErr)
}

// listen runs srv until ctx is done, then shuts it down gracefully.
func listen(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// routerServer is the part of a go-router server the serve command drives.
type routerServer interface {
	Serve(address string) error
	Shutdown(ctx context.Context) error
}

// serveUntilDone runs srv until ctx is done, then shuts it down and waits
// for Serve to return so open connections are drained.
func serveUntilDone(ctx context.Context, srv routerServer, address string, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(address) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		select {
		case err := <-errCh:
			return err
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
	}
}
