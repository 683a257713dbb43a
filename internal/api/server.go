package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/observability"
	"github.com/IshaanNene/storetrends/internal/region"
)

// Querier runs one top-listing query.
type Querier interface {
	Top(ctx context.Context, code string) (*assembler.Success, error)
}

// Server exposes top-listing queries over HTTP.
type Server struct {
	router    *mux.Router
	cfg       *config.Config
	querier   Querier
	assembler *assembler.Assembler
	metrics   *observability.Metrics
	logger    *slog.Logger

	httpServer *http.Server
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(cfg *config.Config, q Querier, asm *assembler.Assembler, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		cfg:       cfg,
		querier:   q,
		assembler: asm,
		metrics:   metrics,
		logger:    logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.logger.Info("API server starting", "addr", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Use(requestIDMiddleware, s.loggingMiddleware)
	// Middleware added with Use only runs on matched routes.
	s.router.MethodNotAllowedHandler = requestIDMiddleware(s.loggingMiddleware(http.HandlerFunc(s.handleMethodNotAllowed)))

	// Queries
	s.router.HandleFunc("/api/top-listings", s.handleTopListings).Methods(http.MethodGet)
	s.router.HandleFunc("/api/steam-top-games", s.handleTopListings).Methods(http.MethodGet)

	// Catalog
	s.router.HandleFunc("/api/regions", s.handleRegions).Methods(http.MethodGet)

	// Health
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics).Methods(http.MethodGet)
	}
}

func (s *Server) handleTopListings(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("region")

	payload, err := s.querier.Top(r.Context(), code)
	if err != nil {
		status, body := s.assembler.Error(err)
		s.logger.Warn("query failed",
			"region", code,
			"status", status,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		s.jsonResponse(w, status, body)
		return
	}

	s.jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"default": region.DefaultCode,
		"regions": region.All(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	s.jsonResponse(w, http.StatusMethodNotAllowed, &assembler.MethodNotAllowed{Error: assembler.LabelMethod})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
