package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/easydata/internal/config"
	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/logging"
	"github.com/JonMunkholm/easydata/internal/persist"
	"github.com/JonMunkholm/easydata/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"persistence", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"max_datasets", cfg.Engine.MaxDatasets,
		"dataset_ttl", cfg.Engine.DatasetTTL,
	)

	ctx := context.Background()

	// Persistence is optional; without a database the service still serves
	// every operation except persist.
	var writer core.TableWriter
	if cfg.Database.Enabled() {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer = persist.NewPostgresWriter(pool)
		core.PersistTimeout = cfg.Database.PersistTimeout
	} else {
		slog.Warn("DATABASE_URL not set, persistence disabled")
	}

	service := core.NewService(core.ServiceConfig{
		MaxDatasets:          cfg.Engine.MaxDatasets,
		DatasetTTL:           cfg.Engine.DatasetTTL,
		MaxRows:              cfg.Engine.MaxRows,
		MaxUploadBytes:       cfg.Upload.MaxFileSize,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		UploadWait:           cfg.Upload.MaxWaitTime,
		MaxAuditEntries:      cfg.Engine.MaxHistory,
	}, writer)

	server := web.NewServer(service, web.Options{
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		RequestTimeout:     cfg.Server.RequestTimeout,
		MaxUploadBytes:     cfg.Upload.MaxFileSize,
		ParquetCompression: cfg.Export.ParquetCompression,
		TrustedProxies:     cfg.Security.TrustedProxies,
		APIKeys:            cfg.Security.APIKeys,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	go service.StartEvictionScheduler(jobCtx, cfg.Engine.EvictionInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		limiter := service.Limiter()
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openPool connects to Postgres with the configured pool settings and
// verifies the connection.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
