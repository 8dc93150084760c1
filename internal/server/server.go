// Package server provides a read-only HTTP inspector over the run ledger
// and the bucket directories.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/schemastore"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Config holds configuration for the inspector server.
type Config struct {
	Store   core.Store
	Layouts map[core.Mode]bucket.Layout
	Schemas *schemastore.Store
	Addr    string
	Watch   bool
	Logger  *slog.Logger
}

// Server is the inspector server.
type Server struct {
	store    core.Store
	layouts  map[core.Mode]bucket.Layout
	schemas  *schemastore.Store
	addr     string
	watch    bool
	logger   *slog.Logger
	buckets  *bucketCache
	notifier *Notifier
}

// New creates a new inspector server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		store:    cfg.Store,
		layouts:  cfg.Layouts,
		schemas:  cfg.Schemas,
		addr:     cfg.Addr,
		watch:    cfg.Watch,
		logger:   logger,
		buckets:  newBucketCache(),
		notifier: NewNotifier(),
	}
}

// Handler returns the HTTP handler serving the inspector routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.logRequests,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.listRuns)
		r.Get("/runs/latest/{mode}", s.latestRun)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/runs/{id}/files", s.runFiles)
		r.Get("/files/{id}/transitions", s.fileTransitions)
		r.Get("/buckets/{mode}", s.listBuckets)
		r.Get("/schema/{mode}", s.getSchema)
		r.Get("/events", s.events)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting inspector", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchBuckets(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down inspector")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// logRequests logs every request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
