package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/noloji/payments-service/internal/config"
	"github.com/noloji/payments-service/internal/data/postgres"
	"github.com/noloji/payments-service/internal/logger"
	"github.com/noloji/payments-service/internal/platform/daraja"
	"github.com/noloji/payments-service/internal/platform/persistence"
	"github.com/noloji/payments-service/internal/reconciler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting payment reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repository and provider client
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	darajaClient := daraja.NewClient(log, cfg.Daraja)

	sweeper, err := reconciler.NewSweeper(&cfg.Reconciler, log, transactionRepo, darajaClient)
	if err != nil {
		log.Error("Failed to initialize reconciliation sweeper", "error", err)
		os.Exit(1)
	}

	// Run the sweeper until shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context and wait for the sweep loop to drain
	cancelAppCtx()
	wg.Wait()
	sweeper.Stop()

	postgresDB.Close()

	log.Info("Reconciler shutdown completed successfully")
}
