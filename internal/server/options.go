package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Options contains optional configuration for the status server.
// NewOptions should be used to create instances of Options.
type Options struct {
	// CORS configuration for cross-origin requests.
	CORS CORSConfig

	// ShutdownTimeout specifies how long to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// CORSConfig defines Cross-Origin Resource Sharing settings for the status server.
type CORSConfig struct {
	// Enabled determines whether CORS headers are added to responses.
	Enabled bool

	// AllowOrigins specifies which origins can access the API.
	// Use ["*"] to allow all origins.
	AllowOrigins []string

	// AllowMethods specifies which HTTP methods are permitted.
	AllowMethods []string

	// AllowedHeaders specifies which headers the client can include in requests.
	AllowedHeaders []string

	// MaxAge specifies how long browsers can cache preflight responses.
	MaxAge time.Duration
}

// Option defines a functional option for configuring Options.
type Option func(*Options) error

// NewOptions creates Options with defaults applied, followed by opts in order.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		CORS: CORSConfig{
			Enabled:        false,
			AllowMethods:   DefaultCORSAllowMethods(),
			AllowedHeaders: DefaultCORSAllowHeaders(),
			MaxAge:         DefaultCORSMaxAge(),
		},
		ShutdownTimeout: DefaultShutdownTimeout(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithCORSAllowOrigins sets the allowed origins for CORS requests, enabling CORS when any are given.
// Blank entries are ignored.
func WithCORSAllowOrigins(origins ...string) Option {
	return func(o *Options) error {
		allowed := make([]string, 0, len(origins))
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed = append(allowed, origin)
			}
		}
		o.CORS.AllowOrigins = allowed
		o.CORS.Enabled = len(allowed) > 0
		return nil
	}
}

// WithShutdownTimeout configures how long to wait for graceful shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive, got %v", timeout)
		}
		o.ShutdownTimeout = timeout
		return nil
	}
}

// DefaultCORSAllowHeaders returns standard headers required for API interaction.
func DefaultCORSAllowHeaders() []string {
	return []string{
		"Accept",
		"Accept-Language",
		"Content-Language",
		"Content-Type",
	}
}

// DefaultCORSAllowMethods returns the HTTP methods of the read-only API.
func DefaultCORSAllowMethods() []string {
	return []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodOptions,
	}
}

// DefaultCORSMaxAge returns the default CORS max age duration.
func DefaultCORSMaxAge() time.Duration {
	return 5 * time.Minute
}

// DefaultShutdownTimeout is the default time allowed for graceful shutdown.
func DefaultShutdownTimeout() time.Duration {
	return 5 * time.Second
}

// IsValidAddr checks if the address is a valid "host:port" string.
func IsValidAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}

	if port == "" {
		return fmt.Errorf("address missing port")
	}

	if _, err := strconv.Atoi(port); err != nil {
		if _, err := net.LookupPort("tcp", port); err != nil {
			return fmt.Errorf("invalid address port: %s", port)
		}
	}

	return nil
}
