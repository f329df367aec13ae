package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/rals-widget/internal/catalog"
	"github.com/yourorg/rals-widget/internal/config"
	"github.com/yourorg/rals-widget/internal/env"
	"github.com/yourorg/rals-widget/internal/logger"
	"github.com/yourorg/rals-widget/internal/redisx"
	"github.com/yourorg/rals-widget/internal/widget"
	"github.com/yourorg/rals-widget/rengo"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Service, lg *slog.Logger) error {
	cfg.Catalog.Logger = lg
	client := rengo.NewClient(cfg.Catalog)

	var src catalog.Source = catalog.Direct{Client: client}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		cached := catalog.NewCached(src, rdb, catalog.CacheOptions{
			TTL:        cfg.CacheTTL,
			StaleAfter: cfg.StaleAfter,
			Logger:     lg,
		})
		defer cached.Close()
		src = cached
		lg.Info("catalog cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
	}

	resolver := widget.NewResolver(src, cfg.Cards, lg)
	resolver.APIBase = client.BaseURL()

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: BuildRouter(RouterDeps{
			Resolver:         resolver,
			Logger:           lg,
			AllowAPIOverride: cfg.AllowAPIOverride,
			RateLimitPerMin:  cfg.RateLimitPerMin,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		lg.Info("rals-widget listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
