// Package server runs the auxiliary HTTP listeners (probes, metrics and the
// mock backend) and ties their lifecycles to a context.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roomwire-io/roomwire/pkg/log"
)

const shutdownTimeout = 5 * time.Second

// Runnable is anything started by Run.
type Runnable interface {
	Start(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

func (f RunnableFunc) Start(ctx context.Context) error { return f(ctx) }

// Server is an HTTP server with liveness and readiness probes.
type Server struct {
	name   string
	server *http.Server
	mux    *http.ServeMux
	ready  func() bool
}

// Option configures a Server.
type Option func(*Server)

// WithHandler mounts h on pattern.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) { s.mux.Handle(pattern, h) }
}

// WithReadiness makes /readyz report 503 while ready returns false.
func WithReadiness(ready func() bool) Option {
	return func(s *Server) { s.ready = ready }
}

// New returns a Server listening on addr once started.
func New(name, addr string, opts ...Option) *Server {
	s := &Server{
		name: name,
		mux:  http.NewServeMux(),
	}

	// Basic Liveness Probe
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Readiness Probe
	s.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.ready != nil && !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "name", s.name, "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Stopping HTTP Server", "name", s.name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// Run starts every runnable in parallel and waits for all of them. The first
// error cancels the others.
func Run(ctx context.Context, runnables ...Runnable) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, r := range runnables {
		if r == nil {
			continue
		}
		g.Go(func() error {
			return r.Start(ctx)
		})
	}

	return g.Wait()
}
