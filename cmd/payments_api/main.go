package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noloji/payments-service/internal/api"
	"github.com/noloji/payments-service/internal/api/service"
	"github.com/noloji/payments-service/internal/config"
	"github.com/noloji/payments-service/internal/data/mongo"
	"github.com/noloji/payments-service/internal/data/postgres"
	"github.com/noloji/payments-service/internal/logger"
	"github.com/noloji/payments-service/internal/platform/daraja"
	"github.com/noloji/payments-service/internal/platform/messaging/producers"
	"github.com/noloji/payments-service/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("payments_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	if !cfg.Daraja.Configured() {
		log.Warn("Daraja credentials are not configured; STK initiation will answer 503 until they are set")
	}

	// Initialize databases with app context; pool construction runs the
	// migrations first
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for payment completed events
	kafkaProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	billingRepo := postgres.NewBillingRepository(log, postgresDB)
	auditRepo := mongo.NewCallbackAuditRepository(log, mongoDB.Database())

	// Initialize provider client and services
	darajaClient := daraja.NewClient(log, cfg.Daraja)
	billingService := service.NewBillingService(log, postgresDB, billingRepo, transactionRepo, kafkaProducer)
	paymentService := service.NewPaymentService(log, cfg.Daraja, darajaClient, transactionRepo, customerRepo)
	callbackService := service.NewCallbackService(log, transactionRepo, billingService, auditRepo)
	trailService := service.NewTrailService(log, transactionRepo, billingRepo, auditRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, paymentService, callbackService, trailService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
