// Package server provides HTTP server initialization and lifecycle management
// for Activity Architect.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/web/handlers"
)

// Options carries optional server dependencies.
type Options struct {
	// Version is reported by /healthz.
	Version string

	// StoreState reports the store circuit breaker state on /healthz.
	StoreState func() string
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store,omitempty"`
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// NewHandler builds the full handler tree: REST API behind auth, the session
// socket, health and metrics, all rate limited and with security headers.
func NewHandler(cfg *config.Config, sess *session.Session, hub *handlers.SessionHub, opts Options) http.Handler {
	mux := http.NewServeMux()

	apiMux := http.NewServeMux()
	handlers.RegisterRoutes(apiMux, handlers.NewAPIHandlers(sess, hub, cfg))
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// Browsers cannot set headers on upgrade requests; origin patterns guard
	// the socket instead.
	mux.Handle("GET /ws/session", hub)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /healthz", handlers.Instrument("GET /healthz", healthHandler(opts)))

	handler := handlers.RateLimitMiddleware(mux, handlers.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst))
	return securityHeadersMiddleware(handler)
}

func healthHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy", Version: opts.Version}
		if opts.StoreState != nil {
			resp.Store = opts.StoreState()
			// an open breaker means writes are failing fast
			if resp.Store == "open" {
				resp.Status = "degraded"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.Warn().Err(err).Msg("failed to encode health response")
		}
	}
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with port 0)
// and the SessionHub. The server shuts down when ctx is cancelled; done is
// closed once shutdown has finished.
func Start(ctx context.Context, cfg *config.Config, sess *session.Session, opts Options) (addr string, done <-chan struct{}, err error) {
	hub := handlers.NewSessionHub(sess, cfg.Server.AllowedOrigin)
	go hub.Run()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewHandler(cfg, sess, hub, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		hub.Stop()
		return "", nil, fmt.Errorf("server: listen on %s: %w", server.Addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server error")
		}
	}()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		<-ctx.Done()

		grace := cfg.Server.ShutdownGrace
		if grace <= 0 {
			grace = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		hub.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("server shutdown error")
		}
		logging.Info().Msg("server stopped")
	}()

	logging.Info().Str("addr", actualAddr).Msg("server listening")
	return actualAddr, finished, nil
}
