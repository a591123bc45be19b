// Package server wires the REST surface: routes, middleware, the websocket
// activity hub, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/config"
	"github.com/casefolio/chronicle/pkg/types"
	"github.com/casefolio/chronicle/web/handlers"
)

// Server is the HTTP front of the chronology.
type Server struct {
	cfg    *config.Config
	repo   *chronology.Repository
	hub    *handlers.WebSocketHub
	logger *log.Logger

	httpServer *http.Server
	addr       string
	hubCancel  context.CancelFunc
}

// New builds a server around a repository. The repository's observer is
// pointed at the activity hub, so every mutation reaches websocket
// subscribers.
func New(cfg *config.Config, repo *chronology.Repository, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	hub := handlers.NewWebSocketHub(logger)
	repo.SetObserver(func(action string, e types.Event) {
		hub.BroadcastActivity(action, e)
	})
	return &Server{cfg: cfg, repo: repo, hub: hub, logger: logger}
}

// Start binds the listener and serves in the background. Use Addr for the
// bound address (useful with port 0) and Shutdown to stop.
func (s *Server) Start(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go s.hub.Run(hubCtx)

	timeline := handlers.NewTimelineHandlers(s.repo, s.logger)
	limiter := handlers.NewRateLimiter(s.cfg.Web.RateLimitPerSecond, s.cfg.Web.RateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/timeline", timeline.Search)
	mux.HandleFunc("/api/summary", timeline.Summary)
	mux.HandleFunc("/api/export", timeline.Export)
	mux.HandleFunc("/api/events", timeline.CreateEvent)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handler := handlers.SecurityHeaders(limiter.Middleware(mux))

	bind := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		cancel()
		return fmt.Errorf("listen on %s: %w", bind, err)
	}
	s.addr = listener.Addr().String()

	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("http server: %v", err)
		}
	}()
	s.logger.Printf("listening on http://%s", s.addr)
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown stops the listener and the activity hub.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hubCancel != nil {
		s.hubCancel()
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
