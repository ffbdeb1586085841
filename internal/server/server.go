// Package server serves a site directory over HTTP with include directives
// resolved on every page request.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livefir/htmlinclude"
	"github.com/livefir/htmlinclude/internal/fetch"
	"github.com/livefir/htmlinclude/internal/metrics"
	"github.com/livefir/htmlinclude/internal/site"
)

const shutdownTimeout = 5 * time.Second

// Options configures the server
type Options struct {
	// Root is the site directory
	Root string

	// FS overrides Root with an arbitrary file system
	FS fs.FS

	// Minify minifies served pages
	Minify bool

	// Cache shares fragment bodies across requests when set
	Cache *fetch.Cache

	// LoaderOptions are applied to every request's loader
	LoaderOptions []htmlinclude.Option

	Logger  *slog.Logger
	Metrics *metrics.Collector

	// Registry receives the include counters; a private registry is used
	// when nil
	Registry *prometheus.Registry
}

// Server is an http.Handler for a site tree
type Server struct {
	fsys    fs.FS
	root    *fetch.FS
	files   http.Handler
	mux     *http.ServeMux
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a server. Its counters are registered on the options' registry,
// which is served at /metrics.
func New(opts Options) (*Server, error) {
	fsys := opts.FS
	if fsys == nil {
		if opts.Root == "" {
			return nil, errors.New("site root is required")
		}
		info, err := os.Stat(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to read site root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("site root is not a directory: %s", opts.Root)
		}
		fsys = os.DirFS(opts.Root)
	}

	s := &Server{
		fsys:    fsys,
		root:    fetch.NewFS(fsys),
		files:   http.FileServer(http.FS(fsys)),
		mux:     http.NewServeMux(),
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if err := s.metrics.Register(reg); err != nil {
		return nil, err
	}

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/", s.handleSite)

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Metrics returns the server's collector
func (s *Server) Metrics() *metrics.Collector {
	return s.metrics
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name, ok := s.pageFor(r.URL.Path)
	if !ok {
		s.files.ServeHTTP(w, r)
		return
	}

	s.servePage(w, r, name)
}

// pageFor maps a request path to an HTML page in the site, following
// directory index files
func (s *Server) pageFor(urlPath string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}

	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return "", false
	}

	if info.IsDir() {
		// Let the file server add the trailing slash redirect first
		if !strings.HasSuffix(urlPath, "/") {
			return "", false
		}
		index := path.Join(name, "index.html")
		if _, err := fs.Stat(s.fsys, index); err != nil {
			return "", false
		}
		return index, true
	}

	return name, site.IsHTML(name)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, name string) {
	src, err := s.fsys.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer src.Close()

	var fetcher fetch.Fetcher = s.root.WithBase(path.Dir(name))
	if s.opts.Cache != nil {
		fetcher = s.opts.Cache.Wrap(fetcher)
	}

	loaderOpts := make([]htmlinclude.Option, 0, len(s.opts.LoaderOptions)+2)
	loaderOpts = append(loaderOpts, s.opts.LoaderOptions...)
	// Page-scoped logging and the server's counters win over LoaderOptions
	loaderOpts = append(loaderOpts,
		htmlinclude.WithLogger(s.logger.With("page", name)),
		htmlinclude.WithRecorder(s.metrics),
	)
	loader := htmlinclude.New(fetcher, loaderOpts...)

	var buf bytes.Buffer
	report, err := site.RenderPage(r.Context(), loader, src, &buf, s.opts.Minify)
	if err != nil {
		s.logger.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Served page", "page", name, "populated", report.Populated(), "failed", report.Failed())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(buf.Bytes())
}

// ListenAndServe runs h on addr until ctx is done, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
