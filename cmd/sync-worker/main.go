package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centsible/sync-worker/internal/aggregator"
	"github.com/centsible/sync-worker/internal/config"
	"github.com/centsible/sync-worker/internal/database"
	"github.com/centsible/sync-worker/internal/repository"
	"github.com/centsible/sync-worker/internal/service"
	"github.com/centsible/sync-worker/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Println("Database connected successfully")

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.Println("Migrations completed successfully")

	// Initialize repositories
	jobRepo := repository.NewSyncJobRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	confirmationRepo := repository.NewConfirmationRepository(db)

	// Initialize aggregator client and institution cache
	client := aggregator.NewClient(cfg.AggregatorURL, cfg.AggregatorClientID, cfg.AggregatorClientSecret)
	institutions := aggregator.NewInstitutionCache(time.Hour)

	// Initialize the sync processor
	processor := service.NewSyncProcessor(
		client,
		accountRepo,
		transactionRepo,
		subscriptionRepo,
		confirmationRepo,
		institutions,
		service.Options{
			PollInterval: time.Duration(cfg.ItemPollInterval) * time.Second,
			PollBudget:   time.Duration(cfg.ItemPollBudget) * time.Second,
			SyncWindow:   time.Duration(cfg.SyncWindowDays) * 24 * time.Hour,
		},
	)

	// Initialize watcher
	w := watcher.New(cfg, jobRepo, processor)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start watcher in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutdown signal received")
		cancel()

		// Wait for graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		select {
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && err != context.Canceled {
				log.Printf("Watcher error: %v", err)
			}
		}

		log.Println("Application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}
