// Package server exposes the pipeline over HTTP: ingestion jobs with a
// websocket progress stream, one-shot question answering, and
// multi-turn chat with persistent memory.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/answer"
	"github.com/siftlabs/ragcore/conversation"
	"github.com/siftlabs/ragcore/ingest"
	"github.com/siftlabs/ragcore/memstore"
)

// Server holds the HTTP surface and its dependencies.
type Server struct {
	jobs         *ingest.Jobs
	synthesizer  *answer.Synthesizer
	orchestrator *conversation.Orchestrator
	store        *memstore.Store
	logger       *zap.Logger
	timeout      time.Duration
}

// Config configures the HTTP surface.
type Config struct {
	// RequestTimeout bounds each request. The websocket event stream is
	// exempt.
	RequestTimeout time.Duration
}

// New assembles the server. All dependencies are required except the
// logger, which falls back to a no-op.
func New(jobs *ingest.Jobs, synthesizer *answer.Synthesizer, orchestrator *conversation.Orchestrator, store *memstore.Store, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{
		jobs:         jobs,
		synthesizer:  synthesizer,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
		timeout:      timeout,
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// The websocket upgrade cannot sit behind the timeout wrapper.
		r.Get("/ingest/jobs/{id}/events", s.handleJobEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))
			r.Post("/ingest", s.handleIngest)
			r.Get("/ingest/jobs/{id}", s.handleJobStatus)
			r.Post("/ask", s.handleAsk)
			r.Post("/chat", s.handleChat)
			r.Get("/memory/{actor}/{thread}", s.handleMemory)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
