package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/metrics"
)

// Engine is the part of the workflow engine the API server drives. It is
// satisfied by *engine.Engine; tests substitute a fake.
type Engine interface {
	Execute(ctx context.Context, req engine.Request) (*core.Report, error)
	ExecuteAsync(ctx context.Context, req engine.Request) (*engine.RunHandle, error)
	Status(ctx context.Context, sessionID string) (*engine.RunStatus, error)
	Cancel(sessionID string) error
	Subscribe(sessionID string) (<-chan core.StepEvent, func(), error)
	Workflows() []engine.WorkflowInfo
	Capabilities() []engine.AgentInfo
}

var _ Engine = (*engine.Engine)(nil)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address.
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// CORSOrigins lists allowed cross-origin request origins. Empty means
	// cross-origin requests are refused.
	CORSOrigins []string

	// RateLimitRPS caps the sustained per-client request rate;
	// RateLimitBurst the burst allowance. Zero RPS disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// AuthEnabled gates the API behind JWT bearer tokens signed with
	// AuthSecret (HS256). The health and metrics endpoints stay open.
	AuthEnabled bool
	AuthSecret  string
}

// DefaultConfig provides sensible defaults for local use.
var DefaultConfig = Config{
	Addr:            ":8080",
	ReadTimeout:     15 * time.Second,
	WriteTimeout:    60 * time.Second,
	ShutdownTimeout: 10 * time.Second,
	RateLimitRPS:    10,
	RateLimitBurst:  20,
}

// Options holds optional settings for New().
type Options struct {
	// Config tunes listening, timeouts, CORS, rate limiting and auth.
	Config Config

	// Documents backs the resume document endpoints. Defaults to an
	// in-memory store.
	Documents document.Store

	// Metrics records per-request counters and latencies. Nil disables
	// HTTP metrics recording; the /metrics endpoint is served either way.
	Metrics *metrics.Collector

	// Gatherer backs the /metrics endpoint. Defaults to the global
	// prometheus gatherer.
	Gatherer prometheus.Gatherer

	// Logger receives request and lifecycle logs.
	Logger logging.Logger
}

// Server exposes the workflow engine over a JSON HTTP API with an SSE step
// stream per run.
type Server struct {
	engine    Engine
	documents document.Store
	metrics   *metrics.Collector
	gatherer  prometheus.Gatherer
	logger    logging.Logger
	config    Config

	handler http.Handler
}

// New creates the API server around the given engine.
func New(eng Engine, optFns ...func(o *Options)) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine must not be nil")
	}

	opts := Options{
		Config:   DefaultConfig,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.AuthEnabled && opts.Config.AuthSecret == "" {
		return nil, errors.New("auth is enabled but no secret is set")
	}

	if opts.Documents == nil {
		opts.Documents = document.NewInMemoryStore()
	}

	s := &Server{
		engine:    eng,
		documents: opts.Documents,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    opts.Logger,
		config:    opts.Config,
	}

	s.handler = s.routes()

	return s, nil
}

// Handler returns the fully assembled HTTP handler, including middleware.
// Useful for tests and for embedding the API into a larger mux.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully within the configured shutdown timeout.
// In-flight requests, including SSE streams, see their request context
// cancelled when shutdown begins.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.logger.Info("server.listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

// routes assembles the router. Health and metrics stay outside the
// rate-limited, authenticated API group.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	r.Use(corsHandler(s.config.CORSOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(api chi.Router) {
		if s.config.RateLimitRPS > 0 {
			api.Use(s.rateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst))
		}

		if s.config.AuthEnabled {
			api.Use(s.jwtAuth([]byte(s.config.AuthSecret)))
		}

		api.Post("/workflows/execute", s.handleExecute)
		api.Get("/workflows", s.handleWorkflows)
		api.Get("/agents/capabilities", s.handleCapabilities)

		api.Route("/runs/{sessionID}", func(runs chi.Router) {
			runs.Get("/status", s.handleRunStatus)
			runs.Post("/cancel", s.handleRunCancel)
			runs.Get("/events", s.handleRunEvents)
		})

		api.Route("/documents", func(docs chi.Router) {
			docs.Post("/", s.handleDocumentUpload)
			docs.Get("/", s.handleDocumentList)
			docs.Get("/{documentID}", s.handleDocumentGet)
			docs.Delete("/{documentID}", s.handleDocumentDelete)
		})
	})

	return r
}
