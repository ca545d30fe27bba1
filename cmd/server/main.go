// Package main is the entry point for the movie recommendation HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
	"github.com/drakeRAGE/movie-recommendation-app/internal/llm"
	"github.com/drakeRAGE/movie-recommendation-app/internal/recommend"
	"github.com/drakeRAGE/movie-recommendation-app/internal/server"
	"github.com/drakeRAGE/movie-recommendation-app/internal/storage"
)

func main() {
	// We call run() separately so deferred cleanup functions execute properly
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("MOVIEREC_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr, so the error is ignored.
	defer func() { _ = logger.Sync() }()

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}
	svc := recommend.NewService(client, cfg.LLM, logger)

	logger.Info("recommendation service ready",
		zap.String("provider", client.ProviderName()),
		zap.String("model", client.ModelName()),
		zap.Int("max_retries", cfg.LLM.Retry.MaxRetries),
		zap.Duration("timeout", cfg.LLM.Timeout),
	)

	srv := server.New(cfg, server.Deps{
		Recommender: svc,
		Calls:       storage.NewCallRepository(db),
	}, logger)

	// Graceful shutdown: listen for SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// In-flight recommendations may be waiting on the model; give them a full attempt.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+5*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// newLogger returns a development logger for "debug" and a production (JSON)
// logger at the configured level otherwise.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
