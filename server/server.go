// Package server exposes the capture store and orchestrator over HTTP:
// deck pages, screenshot/export statics, the editor-state and export-pdf
// endpoints, and capture submission. The same operations are registered as
// MCP tools.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/snapdeck/capture"
	"github.com/hazyhaar/snapdeck/kit"
	"github.com/hazyhaar/snapdeck/store"
)

// Capturer runs capture sessions. *capture.Capturer implements it; tests
// substitute a fake.
type Capturer interface {
	Capture(ctx context.Context, rawURL string) (*capture.Result, error)
}

// Service wires the store and capturer to transports.
type Service struct {
	st  *store.Store
	cap Capturer
	log *slog.Logger
}

// New creates a Service.
func New(st *store.Store, cap Capturer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{st: st, cap: cap, log: log}
}

// Router builds the chi router with all routes and middleware.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.slogRequests)
	r.Use(kitContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/projects/"+store.DefaultProject, http.StatusFound)
	})
	r.Get("/projects/{project}", s.handleDeckPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", s.handleListProjects)
		r.Route("/projects/{project}", func(r chi.Router) {
			r.Get("/captures", s.handleListCaptures)
			r.Post("/captures", s.handleCapture)
			r.Post("/editor-state", s.handleEditorState)
			r.Post("/export-pdf", s.handleExportPDF)
		})
	})

	fileServer(r, "/screenshots", filepath.Join(s.st.Root(), "screenshots"))
	fileServer(r, "/exports", filepath.Join(s.st.Root(), "exports"))

	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("server: listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Service) slogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("server: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func kitContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = kit.WithTransport(ctx, "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fileServer(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
