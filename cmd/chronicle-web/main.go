// chronicle-web serves the chronology REST API and websocket activity feed.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/config"
	"github.com/casefolio/chronicle/internal/server"
	"github.com/casefolio/chronicle/internal/storage"
)

func main() {
	logger := log.New(os.Stderr, "chronicle-web: ", log.LstdFlags)

	if err := run(logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

func run(logger *log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, err := chronology.NewRepository(ctx, store)
	if err != nil {
		return err
	}

	srv := server.New(cfg, repo, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
