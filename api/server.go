// Package api provides the HTTP REST API server for kabuai.
//
// It exposes the valuation, growth and batch analyses, the watchlist
// snapshot and a WebSocket stream of analysis events.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/seenimoa/kabuai/internal/analyzer"
	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/internal/infra"
	"github.com/seenimoa/kabuai/internal/jquants"
	"github.com/seenimoa/kabuai/internal/watchlist"
	"github.com/seenimoa/kabuai/pkg/models"
)

// Analyzer is the analysis surface served by the API.
type Analyzer interface {
	AnalyzeValuation(ctx context.Context, code string, quarter *string, year *int) (*models.ValuationReport, error)
	AnalyzeGrowth(ctx context.Context, code string, years int, quarter *string) (*models.GrowthReport, error)
	AnalyzeCompany(ctx context.Context, code string, years int, quarter *string, year *int) (*models.CompanyReport, error)
	AnalyzeBatch(ctx context.Context, req analyzer.BatchRequest) ([]analyzer.BatchResult, error)
}

// Watchlist exposes the scheduled refresh state.
type Watchlist interface {
	Codes() []string
	Last() *watchlist.Snapshot
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer Analyzer
	watch    Watchlist
	wsHub    *WSHub
	validate *validator.Validate
	logger   zerolog.Logger
	version  string
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithWatchlist enables the /watchlist endpoint.
func WithWatchlist(w Watchlist) Option {
	return func(s *Server) { s.watch = w }
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = infra.Component(l, "api") }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, a Analyzer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: a,
		validate: validator.New(),
		logger:   zerolog.Nop(),
		version:  "dev",
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wsHub = NewWSHub(s.logger)
	s.router = s.buildRouter()
	return s
}

// SetWatchlist attaches the watchlist served by /watchlist.
// Must be called before ListenAndServe.
func (s *Server) SetWatchlist(w Watchlist) {
	s.watch = w
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub. It satisfies watchlist.Publisher.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.requestTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Analysis.Timeout > 0 {
		return time.Duration(s.cfg.Analysis.Timeout) * time.Second
	}
	return 3 * time.Minute
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			// Analysis
			r.Get("/valuation/{code}", s.handleValuation)
			r.Get("/growth/{code}", s.handleGrowth)
			r.Get("/analysis/{code}", s.handleCompany)
			r.Post("/batch", s.handleBatch)
		})

		// Watchlist
		r.Get("/watchlist", s.handleWatchlist)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request with zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"` // error classification, e.g. "rate_limited"
}

// errorStatus maps an analysis error kind to its HTTP status.
func errorStatus(kind analyzer.ErrorKind) int {
	switch kind {
	case analyzer.ErrKindInvalidInput:
		return http.StatusBadRequest
	case analyzer.ErrKindAuth, analyzer.ErrKindProvider:
		return http.StatusBadGateway
	case analyzer.ErrKindRateLimited, analyzer.ErrKindCanceled:
		return http.StatusServiceUnavailable
	case analyzer.ErrKindNotFound:
		return http.StatusNotFound
	case analyzer.ErrKindInsufficient:
		return http.StatusUnprocessableEntity
	case analyzer.ErrKindNetwork, analyzer.ErrKindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeAnalysisError writes err with the status its kind maps to. Rate
// limit errors carry a Retry-After header in whole seconds.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	kind := analyzer.Classify(err)
	status := errorStatus(kind)

	var rl *jquants.RateLimitExceeded
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", fmt.Sprint(secs))
	}

	ev := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Str("kind", string(kind)).Int("status", status).Msg("Analysis request failed")

	writeJSON(w, status, APIResponse{Success: false, Error: err.Error(), Kind: string(kind)})
}
