// Package server exposes the agent loop over HTTP. It is a thin adapter:
// all semantics live in the agent package.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/castor-ai/castor/internal/agent"
	"github.com/castor-ai/castor/internal/core"
)

// Runner is what the router needs from the agent loop.
type Runner interface {
	Run(ctx context.Context, input string, history []core.Turn) (agent.Result, error)
}

type Server struct {
	loop   Runner
	logger *slog.Logger
}

func New(loop Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{loop: loop, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/respond", s.handleRespond)

	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts the listener
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	httpServer := &http.Server{
		Addr:              bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("http server listening", "bind", bind)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type respondRequest struct {
	Input   string      `json:"input"`
	History []core.Turn `json:"history,omitempty"`
}

type respondResponse struct {
	Response      string `json:"response"`
	State         string `json:"state"`
	Tier          string `json:"tier"`
	TurnsUsed     int    `json:"turns_used"`
	ToolCallsMade int    `json:"tool_calls_made"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	result, err := s.loop.Run(r.Context(), req.Input, req.History)
	if err != nil {
		s.logger.Error("respond failed", "error", err)
		writeError(w, http.StatusInternalServerError, "request could not be processed")
		return
	}

	writeJSON(w, http.StatusOK, respondResponse{
		Response:      result.Response,
		State:         string(result.State),
		Tier:          string(result.Tier),
		TurnsUsed:     result.TurnsUsed,
		ToolCallsMade: result.ToolCallsMade,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
