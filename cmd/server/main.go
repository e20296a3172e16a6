package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dante-labs/paper-search/internal/app"
	"github.com/dante-labs/paper-search/pkg/api"
	"github.com/dante-labs/paper-search/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := observability.NewStandardLogger("server")

	container, err := app.Build(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}
	if !container.Settings.Configured() {
		logger.Warn("table names not configured; requests will fail with 500", nil)
	}

	server := api.NewServer(container.Settings.ListenAddress, container.Handler, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-signals:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
