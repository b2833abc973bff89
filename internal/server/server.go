// Package server is the HTTP transport for the provisioning webhook: the
// webhook endpoint itself, health and metrics endpoints, signature
// verification, and access logging.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metalhook/internal/config"
)

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
	log        logr.Logger
}

// New builds the server with its routes wired.
func New(cfg *config.Config, handler *Handler, log logr.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", handler.handleWebhook)
	mux.HandleFunc("GET /healthz", handler.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	s := &Server{log: log.WithName("http")}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           s.accessLog(mux, cfg.DisableHealthzLogs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

// accessLog logs each request, optionally skipping the health endpoint to
// keep probe noise out of the logs.
func (s *Server) accessLog(next http.Handler, skipHealthz bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipHealthz && r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).Round(time.Millisecond).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
