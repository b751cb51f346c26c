package cmd

import (
	"context"
	"fmt"
	"time"

	"coinpool/config"
	"coinpool/database"
	"coinpool/events"
	"coinpool/metrics"
	"coinpool/repository"
	"coinpool/scheduler"
	"coinpool/service"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting coinpool ledger...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize metrics and wire them to committed events
	metrics.Init()
	metrics.Observe(eventBus)
	metricsServer := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	log.WithField("port", cfg.MetricsPort).Info("Metrics server listening")

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// The ledger daemon only drives the reconciliation sweep; interactive
	// operations go through the service layer from the front end process
	moneyService := service.NewMoneyMovementService(uowFactory, cfg)

	// Start the deposit reconciliation sweep
	sweeper, err := scheduler.New(moneyService, cfg.SweepSchedule)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	sweeper.Start()

	// Wait for context cancellation
	log.Infof("Ledger is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics server")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
