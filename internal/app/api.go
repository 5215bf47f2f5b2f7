package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"optymap/internal/fetch"
	"optymap/internal/gtfs"
	v1 "optymap/internal/infrastructure/http/v1"
	"optymap/internal/infrastructure/http/v1/handler"
	"optymap/internal/manager"
	"optymap/internal/store"
	"optymap/pkg/config"
	"optymap/pkg/logger"
	"optymap/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)

	l.Info("app config", "cfg", cfg)

	// Initialize OpenTelemetry if enabled
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
	}

	// Initialize the disk tier
	tileStore, err := store.New(store.Config{
		Backend:    cfg.Store.Backend,
		Dir:        cfg.Store.Dir,
		Ext:        cfg.Store.Ext,
		SQLitePath: cfg.Store.SQLitePath,
		Redis: store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		},
	}, l)
	if err != nil {
		l.Fatal("failed to initialize tile store", "error", err)
	}

	// Initialize the tile manager; this starts the fetch workers
	tiles := manager.New(manager.Config{
		Fetch: fetch.Config{
			Workers:     cfg.Fetcher.Workers,
			URLTemplate: cfg.Fetcher.URLTemplate,
			UserAgent:   cfg.Fetcher.UserAgent,
			Timeout:     cfg.Fetcher.Timeout,
		},
		Cooldown:      cfg.Fetcher.Cooldown,
		PreloadMargin: cfg.Map.PreloadMargin,
	}, tileStore, l)

	// Load route geometry; missing GTFS files just mean no overlays
	geometry := gtfs.Load(cfg.GTFS.Dir, l)

	validate := validator.New()
	h := handler.NewHandler(validate, tiles, geometry)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.Server.ReadTimeout,
		WriteTimeout: cfg.HTTP.Server.WriteTimeout,
		IdleTimeout:  cfg.HTTP.Server.IdleTimeout,
	}

	go func() {
		l.Info("starting http server", "port", cfg.HTTP.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	}

	if err := tiles.Shutdown(ctx); err != nil {
		l.Error("tile manager shutdown failed", "error", err)
	}

	l.Info("application shutdown completed")
}
