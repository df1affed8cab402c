// Command main is the entry point for the fieldcase API server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldcase/internal/bootstrap"
	"fieldcase/internal/config"
	"fieldcase/internal/server"
)

// @title fieldcase API
// @version 1.0
// @description Collaborative map-based investigation log: projects, collaborators, invitations and geotagged entries.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		SeedDemo:       os.Getenv("SEED_DEMO") == "true",
		ServiceVersion: "1.0",
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server resource shutdown error", "err", err)
		}
		if err := rt.ShutdownTracing(shutdownCtx); err != nil {
			slog.Error("Tracing shutdown error", "err", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
