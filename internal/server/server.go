// Package server exposes the question answering pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kokoro/internal/config"
	"github.com/hyperjump/kokoro/internal/metrics"
	"github.com/hyperjump/kokoro/internal/models"
	"github.com/hyperjump/kokoro/pkg/utils"
	"go.uber.org/zap"
)

// Answerer answers a single question.
type Answerer interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// StatusProvider describes the loaded corpus.
type StatusProvider interface {
	Status(ctx context.Context) (*models.CorpusStatus, error)
}

// Server is the HTTP server for the kokoro API.
type Server struct {
	answerer Answerer
	status   StatusProvider
	metrics  *metrics.Metrics
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server. status and m may be nil.
func NewServer(answerer Answerer, status StatusProvider, m *metrics.Metrics, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		answerer: answerer,
		status:   status,
		metrics:  m,
		config:   cfg,
		logger:   utils.OrNop(logger),
	}
}

// defaultRequestTimeout applies when server.request_timeout is unset.
const defaultRequestTimeout = 60 * time.Second

// Router builds the HTTP routes. Request deadlines are enforced by handleRAG so
// that a timeout produces exactly one 504 response.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/rag", s.handleRAG)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.config == nil || s.config.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return s.config.RequestTimeout
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
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

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
