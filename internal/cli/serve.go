package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/export"
	"github.com/eshaffer321/buybox-analyzer/internal/api"
	"github.com/eshaffer321/buybox-analyzer/internal/application/service"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// jobCleanupInterval is how often finished and stale jobs are swept
const jobCleanupInterval = 5 * time.Minute

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	logger := commandLogger(cfg, flags.Verbose, "api")

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := NewOffersClient(cfg, logger)
	if !client.Configured() {
		logger.Warn("SP-API credentials not configured; analyses will fail until they are set")
	}

	analyses := service.NewAnalysisService(cfg, client, export.NewExcelWriter(logger), store, logger)
	analyses.StartBackgroundCleanup(jobCleanupInterval)
	defer analyses.StopBackgroundCleanup()

	apiCfg := api.Config{
		Port:           flags.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	server := api.NewServer(apiCfg, api.Dependencies{
		Repo:            store,
		AnalysisService: analyses,
		Tester:          client,
		Configured:      client.Configured,
	}, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
