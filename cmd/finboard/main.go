package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/amqp"
	"finboard/internal/config"
	finhttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/parser"
	"finboard/internal/services"
	"finboard/internal/storage"
)

func main() {
	// Load .env for local development; in containers the environment is set
	// directly and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Component(applog.Setup(cfg.LogLevel), applog.ComponentApp)

	logger.Info("Starting finboard")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open local store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// The event bus is optional: without it expenses are still stored
	// locally and the periodic backfill in the sync worker picks them up.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, record sync events disabled", "error", err)
			amqpClient = nil
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var geminiClient *parser.Client
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = parser.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize expense parser", "error", err)
			os.Exit(1)
		}
		logger.Info("Expense parser initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Expense parser disabled - no GEMINI_API_KEY provided")
	}

	records := services.NewRecordService(repo, amqpClient)
	defer func() {
		if err := records.Close(); err != nil {
			logger.Error("Error during cleanup", "error", err)
		}
	}()

	var serverParser finhttp.ExpenseParser
	if geminiClient != nil {
		serverParser = geminiClient
	}

	server := finhttp.NewServer(finhttp.Options{
		Addr:             ":" + cfg.Port,
		Records:          records,
		Repo:             repo,
		Parser:           serverParser,
		OverviewCacheTTL: cfg.OverviewCacheTTL,
	})

	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server shutdown complete")
}
