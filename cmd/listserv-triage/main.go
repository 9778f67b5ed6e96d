package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/di"
	"github.com/mikey/listserv-triage/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	servers []ports.IngestServer,
	ingest *core.IngestService,
	store core.EmailStore,
) error {
	defer logger.Sync()

	if len(servers) == 0 {
		return fmt.Errorf("no ingestion transports enabled")
	}

	for _, server := range servers {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
			return err
		}
	}

	ingest.StartSweeper()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	for _, server := range servers {
		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop server", zap.Error(err))
		}
	}

	ingest.Stop()

	if err := store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
