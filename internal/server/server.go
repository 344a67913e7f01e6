package server

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozilla-ai/triage/internal/api"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/metrics"
)

// Server serves the read-only status API and ledger metrics.
// New should be used to create instances of Server.
type Server struct {
	// logger for server operations.
	logger hclog.Logger

	// store is read on every request, never written.
	store api.LedgerReader

	// addr specifies the network address to bind.
	addr string

	// cors configuration for cross-origin requests.
	cors CORSConfig

	// shutdownTimeout specifies how long to wait for graceful shutdown.
	shutdownTimeout time.Duration
}

// New creates a status server bound to addr, reading ledgers from store.
func New(logger hclog.Logger, store api.LedgerReader, addr string, opt ...Option) (*Server, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if store == nil || reflect.ValueOf(store).IsNil() {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}

	addr = strings.TrimSpace(addr)
	if err := IsValidAddr(addr); err != nil {
		return nil, fmt.Errorf("invalid server address '%s': %w", addr, err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}

	return &Server{
		logger:          logger.Named("server"),
		store:           store,
		addr:            addr,
		cors:            opts.CORS,
		shutdownTimeout: opts.ShutdownTimeout,
	}, nil
}

// Handler builds the HTTP handler exposing the API under /api/v1 and metrics under /metrics.
func (s *Server) Handler() (http.Handler, error) {
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	if s.cors.Enabled {
		s.applyCORS(mux)
	}

	config := huma.DefaultConfig("triage status API", api.APIVersion)
	router := humachi.New(mux, config)

	// Configure the error handling wrapping.
	huma.NewErrorWithContext = errorHandler(s.logger)

	if _, err := api.RegisterRoutes(router, s.store); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewLedgerCollector(s.logger, s.store)); err != nil {
		return nil, fmt.Errorf("failed to register ledger collector: %w", err)
	}
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return mux, nil
}

// Start starts the server and blocks until the context is canceled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Starting status server", "address", s.addr)
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down status server...")
		_ = srv.Shutdown(shutdownCtx)
		s.logger.Info("Shutdown complete")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// applyCORS applies CORS middleware to the router based on the configured options.
func (s *Server) applyCORS(mux *chi.Mux) {
	s.logger.Info("Enabling CORS", "origins", s.cors.AllowOrigins)

	corsOptions := cors.Options{
		AllowedOrigins: s.cors.AllowOrigins,
		AllowedMethods: s.cors.AllowMethods,
		AllowedHeaders: s.cors.AllowedHeaders,
		MaxAge:         int(s.cors.MaxAge.Seconds()),
	}

	for _, origin := range corsOptions.AllowedOrigins {
		if origin == "*" {
			corsOptions.AllowedOrigins = []string{"*"}
			break
		}
	}

	mux.Use(cors.Handler(corsOptions))
}

// mapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors are converted to HTTP responses.
// Every error defined in internal/errors/errors.go should have an explicit case here,
// otherwise it falls through to the default case which returns HTTP 500.
//
// Don't forget to add test cases to TestMapError (internal/server/server_test.go).
func mapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stdErrors.Is(err, errors.ErrUnknownLedger):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrInvalidRepoURL):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrMissingLedger):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrLedgerCorrupt):
		logger.Error("Ledger corrupt", "error", err)
		return huma.Error500InternalServerError("Ledger corrupt", err)
	case stdErrors.Is(err, errors.ErrAcquisitionFailed):
		logger.Error("Repository acquisition failed", "error", err)
		return huma.Error502BadGateway("Repository acquisition failed", err)
	case stdErrors.Is(err, errors.ErrArchiveRelocation):
		logger.Error("Archive relocation failed", "error", err)
		return huma.Error500InternalServerError("Archive relocation failed", err)
	default:
		logger.Error("Unexpected error serving status API", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// errorHandler wraps error handling for the application when converting to API friendly errors.
func errorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		// Client errors raised by huma itself, such as request validation, keep their status.
		if status < http.StatusInternalServerError && len(errs) > 0 && onlyErrorDetails(errs) {
			return huma.NewError(status, msg, errs...)
		}

		switch len(errs) {
		case 0:
			return huma.NewError(status, msg)
		case 1:
			return mapError(logger, errs[0])
		default:
			return mapError(logger, stdErrors.Join(errs...))
		}
	}
}

// onlyErrorDetails reports whether every error is a huma error detail.
func onlyErrorDetails(errs []error) bool {
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !stdErrors.As(err, &detail) {
			return false
		}
	}
	return true
}
