// Package main is the entry point for the prodplan background worker.
// It periodically rebuilds the cached item stock projection from the
// canonical movement log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"prodplan/internal/domain/ledger"
	"prodplan/internal/infrastructure/storage/postgres"
	"prodplan/internal/infrastructure/storage/postgres/catalog_repo"
	"prodplan/internal/infrastructure/storage/postgres/ledger_repo"
	"prodplan/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting prodplan worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	itemRepo := catalog_repo.NewItemRepo(txManager)
	projector := ledger.NewStockProjector(ledgerRepo, itemRepo)

	runProjection := func() {
		jobCtx := logger.WithLogger(ctx, log.WithComponent("stock_projection"))
		updated, err := projector.RebuildItemStock(jobCtx)
		if err != nil {
			log.Errorw("stock projection failed", "error", err)
			return
		}
		log.Infow("stock projection completed", "updated", updated)
	}

	// One pass on startup, then on schedule.
	runProjection()

	scheduler := cron.New()
	schedule := getEnv("STOCK_PROJECTION_SCHEDULE", "*/15 * * * *")
	if _, err := scheduler.AddFunc(schedule, runProjection); err != nil {
		log.Fatalw("invalid projection schedule", "schedule", schedule, "error", err)
	}
	scheduler.Start()
	log.Infow("projection scheduled", "schedule", schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	<-scheduler.Stop().Done()
	log.Info("worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
