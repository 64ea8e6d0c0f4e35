package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smarttravel/internal/amqp"
	"smarttravel/internal/analytics"
	"smarttravel/internal/budget"
	"smarttravel/internal/cache"
	"smarttravel/internal/config"
	"smarttravel/internal/costs"
	apphttp "smarttravel/internal/http"
	"smarttravel/internal/rates"
	"smarttravel/internal/services"
	"smarttravel/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional; without it trip events are skipped and the
	// activity feed stays empty.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	rateCache := rates.NewRateCache(500, cfg.RateTTL)
	converter := rates.NewConverter(
		rates.NewHTTPProvider(cfg.RatesBaseURL, cfg.RatesTimeout),
		rateCache,
		logger,
	)

	cacheManager := cache.NewManager()
	cacheManager.Register(rateCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	catalog, err := costs.NewCatalog()
	if err != nil {
		logger.Error("Failed to load city cost dataset", "error", err)
		os.Exit(1)
	}

	trips := services.NewTripService(repo, amqpClient)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:          services.NewUserService(repo, cfg.BcryptCost, cfg.SessionTTL),
		Trips:          trips,
		Expenses:       services.NewExpenseService(repo, trips),
		Aggregator:     analytics.NewAggregator(repo, converter, logger),
		Calculator:     budget.NewCalculator(catalog, converter, logger),
		Catalog:        catalog,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting smarttravel server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
