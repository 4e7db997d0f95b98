// Package api provides the HTTP transport for the campaign bot.
//
// It exposes RESTful endpoints for running conversation turns, inspecting
// session state, and resetting sessions. The API integrates with the flow
// engine and the store modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// BotEngine is the conversation engine consumed by the HTTP handlers.
type BotEngine interface {
	HandleTurn(ctx context.Context, sessionID, message string) (*models.ConversationRecord, error)
	Snapshot(ctx context.Context, sessionID string) (*models.ConversationRecord, error)
	Reset(ctx context.Context, sessionID string) error
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the HTTP endpoints to the flow engine.
type Server struct {
	engine BotEngine
	addr   string
	srv    *http.Server
}

// NewServer creates an API server over the given engine.
func NewServer(engine BotEngine, options ...Option) *Server {
	opts := Opts{Addr: DefaultAddr}
	for _, opt := range options {
		opt(&opts)
	}
	return &Server{engine: engine, addr: opts.Addr}
}

// Handler returns the routed HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot/message", s.messageHandler)
	mux.HandleFunc("/bot/session", s.sessionHandler)
	mux.HandleFunc("/bot/reset", s.resetHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		slog.Info("Server.Run: API shut down")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	}
}
