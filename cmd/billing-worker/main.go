package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"finboard/internal/amqp"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Component(applog.Setup(cfg.LogLevel), applog.ComponentBilling)

	logger.Info("Starting billing-worker", "schedule", cfg.BillingSchedule)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open local store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, record sync events disabled", "error", err)
			amqpClient = nil
		}
	}

	records := services.NewRecordService(repo, amqpClient)
	defer func() {
		if err := records.Close(); err != nil {
			logger.Error("Error during cleanup", "error", err)
		}
	}()

	processor := services.NewBillingProcessor(repo, repo, records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		created, err := processor.ProcessDueCharges(ctx, time.Now())
		if err != nil {
			logger.Error("Billing run failed", "error", err)
			return
		}
		if created > 0 {
			logger.Info("Billing run complete", "charges_created", created)
		}
	}

	// Catch up immediately on start; a restart must not wait for the next
	// scheduled slot to materialize due charges.
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.BillingSchedule, run); err != nil {
		logger.Error("Invalid billing schedule", "error", err, "schedule", cfg.BillingSchedule)
		os.Exit(1)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Billing worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
