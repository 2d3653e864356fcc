// Package server exposes the selection engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/core"
)

// Options configures the HTTP listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the JSON API.
type Server struct {
	service   *core.Service
	dashboard *core.Dashboard
	logger    *zap.Logger
	validate  *validator.Validate
	opts      Options
	handler   http.Handler
}

// New creates a server over svc.
func New(svc *core.Service, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		service:   svc,
		dashboard: core.NewDashboard(svc.Catalog(), svc.Ledger()),
		logger:    logger.Named("server"),
		validate:  validator.New(),
		opts:      opts,
	}

	router := httprouter.New()
	s.registerRoutes(router)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, notFound("no route for %s", r.URL.Path))
	})

	var h http.Handler = router
	h = recovery(s.logger)(h)
	h = requestLogging(s.logger)(h)
	s.handler = h
	return s
}

func (s *Server) registerRoutes(router *httprouter.Router) {
	router.GET("/healthz", s.health)
	router.GET("/api/v1/catalog", s.getCatalog)
	router.GET("/api/v1/countries", s.listCountries)
	router.GET("/api/v1/countries/:id", s.getCountry)
	router.POST("/api/v1/confirm", s.confirm)
	router.GET("/api/v1/accounts/:account/selection", s.getSelection)
	router.GET("/api/v1/accounts/:account/history", s.getHistory)
	router.GET("/api/v1/overview", s.getOverview)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := s.opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
