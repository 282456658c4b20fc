// Package server provides the HTTP API for resume to job description scoring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/server/ratelimit"
)

const (
	defaultMaxUploadBytes  = 10 << 20
	defaultShutdownTimeout = 15 * time.Second
	defaultMinInputLength  = 50
)

// Config holds server configuration
type Config struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	MaxUploadBytes     int64
	AllowedOrigins     []string
	MinInputLength     int
	MinExtractedLength int
	RateLimit          ratelimit.Config
}

// Deps are the scoring components the handlers call into.
type Deps struct {
	Scorer    *scoring.Scorer
	Analyzer  *scoring.Analyzer
	Extractor *extract.Extractor
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         Config
	scorer      *scoring.Scorer
	analyzer    *scoring.Analyzer
	extractor   *extract.Extractor
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
	logger      *zap.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps, log *zap.Logger) (*Server, error) {
	if deps.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = scoring.NewAnalyzer(deps.Scorer, nil, log)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(log)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MinInputLength <= 0 {
		cfg.MinInputLength = defaultMinInputLength
	}
	if cfg.MinExtractedLength <= 0 {
		cfg.MinExtractedLength = defaultMinInputLength
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:         cfg,
		scorer:      deps.Scorer,
		analyzer:    deps.Analyzer,
		extractor:   deps.Extractor,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		validate:    newValidator(),
		logger:      log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /match", s.handleMatch)
	mux.HandleFunc("POST /match/detailed", s.handleMatchDetailed)
	mux.HandleFunc("POST /match/upload", s.handleMatchUpload)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRecover(s.withRequestID(s.withLogging(s.withCORS(s.withRateLimit(mux)))))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer s.rateLimiter.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", s.embeddingFields(zap.String("addr", listener.Addr().String()))...)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

func (s *Server) embeddingFields(extra ...zap.Field) []zap.Field {
	embedder := s.scorer.Embedder()
	if embedder == nil {
		return extra
	}
	return logger.EmbeddingFields(embedder.Provider(), embedder.Model(), extra...)
}

// newValidator reports JSON or form field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}
