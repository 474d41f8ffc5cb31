package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dialoguelab/studychat/internal/adapter/llm"
	"github.com/dialoguelab/studychat/internal/config"
	"github.com/dialoguelab/studychat/internal/service"
	"github.com/dialoguelab/studychat/internal/storage"
	"github.com/dialoguelab/studychat/internal/tracker"
	transport "github.com/dialoguelab/studychat/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting study backend...")
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Max session duration: %s", cfg.MaxSessionDuration)

	// Initialize storage backends, primary first. A missing or
	// unreachable primary store is fatal in production and degrades to
	// fallback-only everywhere else.
	var backends []storage.Store
	if cfg.DatabaseURL != "" {
		primary, err := storage.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			if cfg.Production() {
				log.Fatalf("Failed to initialize primary store: %v", err)
			}
			log.Printf("WARN: primary store unavailable, continuing fallback-only: %v", err)
		} else {
			backends = append(backends, primary)
			log.Printf("Primary store: %s", cfg.DatabaseURL)
		}
	} else if cfg.Production() {
		log.Fatalf("DATABASE_URL is required in production")
	} else {
		log.Printf("WARN: no DATABASE_URL configured, running fallback-only")
	}

	fallback, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize fallback store: %v", err)
	}
	backends = append(backends, fallback)

	gateway := storage.NewGateway(backends...)

	// Initialize the open-session tracker
	tr := tracker.New(cfg.MaxSessionDuration)

	// Initialize the reply generator
	generator := llm.NewReplyGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)

	// Initialize service
	svc := service.New(gateway, tr, generator, cfg)

	// Create the HTTP server
	server := transport.NewServer(svc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down study backend...")

	// Graceful shutdown: stop accepting requests, let in-flight writes
	// finish, then release store connections.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	if err := gateway.Close(); err != nil {
		log.Printf("Failed to close stores: %v", err)
	}

	log.Println("Study backend stopped")
}
