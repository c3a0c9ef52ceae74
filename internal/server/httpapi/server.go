// Package httpapi exposes the session lifecycle over HTTP with JSON bodies.
// Error responses carry a machine-readable "code" field so clients can react
// without parsing messages.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/forkful/authcore/internal/logging"
	"github.com/forkful/authcore/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer wires the services into HTTP routes.
type HTTPServer struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	sessions  *services.SessionService
	jwtSecret []byte
}

// NewHTTPServer constructs an HTTPServer bound to the given address.
func NewHTTPServer(address string, logger logging.Logger, us *services.UserService, ss *services.SessionService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   address,
		logger:    logger.With("module", "http_server"),
		users:     us,
		sessions:  ss,
		jwtSecret: []byte(secretKey),
	}
}

// Handler builds the route table. Split out from Run so tests can drive the
// full stack through httptest.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /session", s.handleLogin)
	mux.HandleFunc("POST /session/refresh", s.handleRefresh)
	mux.HandleFunc("POST /session/revoke", s.handleRevoke)
	mux.Handle("POST /session/revoke-all", s.withAuth(http.HandlerFunc(s.handleRevokeAll)))
	mux.Handle("GET /session/active", s.withAuth(http.HandlerFunc(s.handleActiveSessions)))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
