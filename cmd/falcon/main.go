// Falcon - Transaction risk decisions in a single binary.
// Copyright (c) 2025 falcon.fin
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/falcon-fin/falcon/internal/api"
	"github.com/falcon-fin/falcon/internal/bus"
	"github.com/falcon-fin/falcon/internal/cache"
	"github.com/falcon-fin/falcon/internal/domain"
	"github.com/falcon-fin/falcon/internal/model"
	"github.com/falcon-fin/falcon/internal/pipeline"
	"github.com/falcon-fin/falcon/internal/repository"
	"github.com/falcon-fin/falcon/internal/scoring"
	"github.com/falcon-fin/falcon/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("FALCON_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting falcon",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("FALCON_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	if path := os.Getenv("FALCON_MODEL_BUNDLE"); path != "" {
		cfg.Models.BundlePath = path
	}
	if path := os.Getenv("FALCON_SQLITE_PATH"); path != "" {
		cfg.Repository.SQLitePath = path
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load the model bundle
	bundle, err := loadBundle(cfg.Models.BundlePath)
	if err != nil {
		slog.Error("failed to load model bundle", "path", cfg.Models.BundlePath, "error", err)
		os.Exit(1)
	}

	scorer, err := scoring.NewScorer(bundle)
	if err != nil {
		slog.Error("failed to initialize scorer", "error", err)
		os.Exit(1)
	}
	slog.Info("models loaded",
		"version", scorer.ModelVersion(),
		"feature_width", bundle.FeatureWidth(),
	)

	// Initialize decision pipeline
	p, err := pipeline.New(cfg, repo, cacheImpl, busImpl, scorer)
	if err != nil {
		slog.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	slog.Info("decision pipeline initialized")

	// Initialize async Worker (Pro tier, or opt-in)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("FALCON_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, p)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, p, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("falcon is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("falcon shutdown complete")
}

// loadBundle loads the configured model artifact, falling back to the
// built-in development bundle when no path is configured.
func loadBundle(path string) (*model.Bundle, error) {
	if path == "" {
		slog.Warn("no model bundle configured, using built-in development bundle")
		return model.DevBundle(), nil
	}
	return model.Load(path)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  Falcon - Transaction Risk Engine")
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /predict             - Score a transaction")
	fmt.Println("    GET  /transactions/{id}   - Get a recorded transaction")
	fmt.Println("    GET  /decisions/{id}      - Get a decision by ID")
	fmt.Println("    GET  /analytics/summary   - Aggregate decision statistics")
	fmt.Println("    GET  /admin/review        - Pending review queue")
	fmt.Println("    POST /admin/review        - Submit a review verdict")
	fmt.Println("    GET  /merchants/{account} - Get merchant metadata")
	fmt.Println("    PUT  /merchants/{account} - Upsert merchant metadata")
	fmt.Println("    GET  /health              - Health check")
	fmt.Println()
}
