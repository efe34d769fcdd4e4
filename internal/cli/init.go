// Package cli provides common initialization shared by cmd/runpay,
// cmd/runpay-worker and cmd/runpayctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"runpay/internal/backend"
	"runpay/internal/config"
	"runpay/internal/core"
	"runpay/internal/log"
	"runpay/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger at level and makes it the slog
// default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is fine in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates it. worker adds the
// export worker's requirements.
func LoadConfig(worker bool) (*config.Config, error) {
	cfg := config.Load()
	validate := cfg.Validate
	if worker {
		validate = cfg.ValidateWorker
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig that exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger, worker bool) *config.Config {
	cfg, err := LoadConfig(worker)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadSeed opens the configured seed backend and reads the seed once.
// onDB receives the SQLite repository when that backend is used.
func LoadSeed(ctx context.Context, cfg *config.Config, logger *log.Logger, onDB func(*storage.SQLiteRepository)) (core.Seed, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return core.Seed{}, nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger, onDB)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return core.Seed{}, nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	s, err := res.Reader.ReadSeed(ctx)
	if err != nil {
		if res.Cleanup != nil {
			res.Cleanup()
		}
		return core.Seed{}, nil, fmt.Errorf("read seed from %s: %w", res.Source, err)
	}

	logger.WithComponent(log.ComponentSeed).InfoContext(ctx, "Seed loaded",
		log.FieldOperation, log.OpSeed,
		"source", res.Source,
		"employees", len(s.Employees))
	return s, res.Cleanup, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		}
	}()
	return ctx, stop
}
