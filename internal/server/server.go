// package server contains the router, middleware & handlers for the setlistx HTTP service
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/ratelimit"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                                        // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, mw ...Middleware) // Handle registers a handler for the specified method and path
	Handler(handler Handler, mw ...Middleware)                           // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)                    // ServeHTTP implements http.Handler for the entire router
}

// Opts wires the service's collaborators.
type Opts struct {
	Addr     string
	Setlists *SetlistHandler
	DevToken *DevTokenHandler
	Limiter  *ratelimit.Limiter // guards the dev-token route
	Metrics  *telemetry.Metrics
	Logger   *log.Logger
}

// Server is the HTTP service.
type Server struct {
	httpServer *http.Server
	router     *BasicRouter
	logger     *log.Logger
}

// New registers every route on a fresh router.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	logger := shared.WithLogger(opts.Logger, "component", "server")

	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger))

	router.Handle(http.MethodGet, "/api/health", http.HandlerFunc(handleHealth))
	router.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler())
	if opts.Setlists != nil {
		router.Handler(opts.Setlists)
	}
	if opts.DevToken != nil {
		var mw []Middleware
		if opts.Limiter != nil {
			mw = append(mw, RateLimit(opts.Limiter, opts.Metrics, "/api/apple/dev-token"))
		}
		router.Handler(opts.DevToken, mw...)
	}

	return &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ServeHTTP lets tests drive the full stack without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
