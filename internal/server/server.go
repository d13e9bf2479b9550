// Package server provides the HTTP API for ronbun.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/analysis"
	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/convert"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/store"
)

// Analyzer runs one analysis pass over extracted text.
// *analysis.Orchestrator is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, text string, pass analysis.Pass, paper *analysis.PaperContext) (*models.AnalysisResult, error)
}

// Server is the HTTP server for the ronbun API.
type Server struct {
	store     store.Store
	converter convert.Converter
	analyzer  Analyzer
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st store.Store,
	converter convert.Converter,
	analyzer Analyzer,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:     st,
		converter: converter,
		analyzer:  analyzer,
		config:    cfg,
		logger:    logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// The analyze path waits synchronously on the model; give it headroom
	// beyond the outbound timeout.
	r.Use(middleware.Timeout(s.config.LLM.Timeout() + 30*time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Post("/api/v1/papers", s.handleUploadPaper)
	r.Post("/api/v1/papers/{id}/analyze/{pass}", s.handleAnalyzePaper)
	r.Get("/api/v1/papers/{id}", s.handleGetPaper)
	r.Delete("/api/v1/papers/{id}", s.handleDeletePaper)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
