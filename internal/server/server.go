// Package server exposes the data-view compiler over HTTP.
//
// Routes:
//
//	POST /data-views/compile   request body -> {query, data_view_metadata, hash}
//	POST /data-views/results   compile, execute, return rows
//	GET  /columns              column catalog
//	GET  /healthz              liveness
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/season"
	"github.com/roach88/dataview/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers' dependencies.
type Server struct {
	compiler *compiler.Compiler
	seasons  season.Provider
	exec     store.Executor
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Server.
type Option func(*Server)

// WithExecutor enables POST /data-views/results.
func WithExecutor(e store.Executor) Option {
	return func(s *Server) {
		s.exec = e
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRequestIDs overrides the request id generator (UUIDv7 by default).
func WithRequestIDs(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// New creates a Server. seasons supplies the season context for every
// compilation.
func New(c *compiler.Compiler, seasons season.Provider, opts ...Option) *Server {
	s := &Server{
		compiler: c,
		seasons:  seasons,
		logger:   slog.Default(),
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.handleHealth)
	r.Get("/columns", s.handleColumns)
	r.Route("/data-views", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/results", s.handleResults)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLog assigns a request id and logs one line per request.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.newID()
		w.Header().Set("X-Request-ID", id)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
