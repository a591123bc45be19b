// chronicle-mcp serves the case chronology over the Model Context Protocol
// on stdio. Stdout is reserved for JSON-RPC frames; all logging goes to
// stderr.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/casefolio/chronicle/internal/api/mcp"
	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/config"
	"github.com/casefolio/chronicle/internal/storage"
)

func main() {
	logger := log.New(os.Stderr, "chronicle-mcp: ", log.LstdFlags)
	log.SetOutput(os.Stderr)

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

	server := mcp.NewServer(repo, mcp.WithLogger(logger))
	logger.Printf("session %s: serving on stdio (engine=%s)", server.SessionID(), cfg.Storage.Engine)

	transport := mcp.NewStdioTransport(server, os.Stdin, os.Stdout, logger)
	if err := transport.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Println("shutting down")
	return nil
}
