package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/intellifone/appraisal/internal/api"
	"github.com/intellifone/appraisal/internal/config"
	"github.com/intellifone/appraisal/internal/logger"
	"github.com/intellifone/appraisal/internal/pricing"
	"github.com/intellifone/appraisal/internal/storage"
	"github.com/intellifone/appraisal/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(
		cfg.Storage.MaxListings,
		cfg.Storage.DBPath,
	)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	appraiser := pricing.NewAppraiser(store, pricing.TrainerConfig{
		Trees:   cfg.Pricing.Trees,
		Seed:    cfg.Pricing.Seed,
		MinRows: cfg.Pricing.MinTrainingRows,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier api.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
		notifier = telegramClient
		telegramClient.ListenForCommands(ctx)
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	mux := http.NewServeMux()
	api.NewHandler(appraiser, notifier).Register(mux)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting appraisal service on %s (trees: %d, min_training_rows: %d, max_listings: %d)",
			cfg.Server.Addr,
			cfg.Pricing.Trees,
			cfg.Pricing.MinTrainingRows,
			cfg.Storage.MaxListings,
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("Shutdown signal received, cleaning up...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}

	logger.Info("Service stopped")
}
