package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/cv-generator/internal/config"
	"github.com/jonathan/cv-generator/internal/db"
	"github.com/jonathan/cv-generator/internal/observability"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/service"
	"github.com/jonathan/cv-generator/internal/storage"
)

// app holds the wired components shared by every command
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	service *service.CVService
	closer  io.Closer
}

// loadConfig reads the config file (if any), applies environment overrides
// and defaults, and validates the result.
func loadConfig(path string) (config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}

// openBackend selects the storage backend named by cfg.Backend
func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (storage.Backend, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendPostgres:
		pg, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	default:
		fs, err := storage.NewFSBackend(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}

// newApp wires config, logger, store, renderer and service
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	log.Logger = logger

	backend, closer, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	engine, err := rendering.NewTemplateEngine(cfg.TemplateDir)
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}
	rasterizer, err := rendering.NewRasterizer(cfg.Rasterizer, cfg.ChromePath, cfg.RasterizeTimeout())
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}

	store := storage.New(backend, storage.WithLogger(logger))
	svc := service.New(store, rendering.NewCoordinator(engine, rasterizer), service.WithLogger(logger))

	logger.Debug().
		Str("backend", cfg.Backend).
		Str("rasterizer", cfg.Rasterizer).
		Msg("application configured")

	return &app{cfg: cfg, logger: logger, service: svc, closer: closer}, nil
}

// Close releases the backend connection, if any
func (a *app) Close() {
	closeQuietly(a.closer)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
