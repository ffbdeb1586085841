// Package site applies include resolution to every page of a static site tree.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/livefir/htmlinclude"
	"github.com/livefir/htmlinclude/internal/fetch"
)

// Options configures a site build
type Options struct {
	// SourceDir is the site root. Absolute include paths resolve against it.
	SourceDir string

	// OutputDir receives the processed tree. It may not be SourceDir.
	OutputDir string

	// Exclude lists slash-separated glob patterns (path.Match) of files and
	// directories left out of the output, relative to SourceDir
	Exclude []string

	// Minify minifies processed pages
	Minify bool

	// Workers caps pages processed at once (default: GOMAXPROCS)
	Workers int

	// Fetcher overrides file system resolution, e.g. to fetch over HTTP
	Fetcher fetch.Fetcher

	// Cache shares fragment bodies across pages when set
	Cache *fetch.Cache

	// LoaderOptions are applied to every page's loader
	LoaderOptions []htmlinclude.Option

	Logger *slog.Logger
}

// PageFailure is one failed include on one page
type PageFailure struct {
	Page string
	Path string
	Err  error
}

// Summary describes a completed build
type Summary struct {
	Pages     int
	Assets    int
	Populated int
	Failed    int
	Failures  []PageFailure
}

// IsHTML reports whether name is a page the builder processes
func IsHTML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Build processes the source tree into the output tree. Include failures are
// reported in the summary; only I/O and parse errors fail the build.
func Build(ctx context.Context, opts Options) (*Summary, error) {
	if opts.SourceDir == "" || opts.OutputDir == "" {
		return nil, errors.New("source and output directories are required")
	}

	srcAbs, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	outAbs, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if srcAbs == outAbs {
		return nil, errors.New("output directory must differ from source directory")
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source is not a directory: %s", opts.SourceDir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	b := &builder{
		opts:    opts,
		srcFS:   os.DirFS(srcAbs),
		outDir:  outAbs,
		logger:  logger,
		summary: &Summary{},
	}
	b.root = fetch.NewFS(b.srcFS)

	files, err := b.collect(srcAbs, outAbs)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range files {
		g.Go(func() error {
			if IsHTML(name) {
				return b.page(gctx, name)
			}
			return b.asset(name)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Site built",
		"pages", b.summary.Pages,
		"assets", b.summary.Assets,
		"populated", b.summary.Populated,
		"failed", b.summary.Failed)

	return b.summary, nil
}

type builder struct {
	opts   Options
	srcFS  fs.FS
	root   *fetch.FS
	outDir string
	logger *slog.Logger

	mu      sync.Mutex
	summary *Summary
}

// collect lists the slash-separated names of every file to emit
func (b *builder) collect(srcAbs, outAbs string) ([]string, error) {
	var files []string

	err := fs.WalkDir(b.srcFS, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			// Output nested inside the source is never read back
			if filepath.Join(srcAbs, filepath.FromSlash(name)) == outAbs {
				return fs.SkipDir
			}
		}

		if b.excluded(name) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source directory: %w", err)
	}

	return files, nil
}

func (b *builder) excluded(name string) bool {
	for _, pattern := range b.opts.Exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (b *builder) fetcherFor(name string) fetch.Fetcher {
	var f fetch.Fetcher = b.root.WithBase(path.Dir(name))
	if b.opts.Fetcher != nil {
		f = b.opts.Fetcher
	}
	if b.opts.Cache != nil {
		f = b.opts.Cache.Wrap(f)
	}
	return f
}

func (b *builder) page(ctx context.Context, name string) error {
	src, err := b.srcFS.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	loader := htmlinclude.New(b.fetcherFor(name), b.loaderOptions(name)...)

	var buf bytes.Buffer
	report, err := RenderPage(ctx, loader, src, &buf, b.opts.Minify)
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", name, err)
	}

	if err := b.write(name, &buf); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary.Pages++
	b.summary.Populated += report.Populated()
	b.summary.Failed += report.Failed()
	for _, f := range report.Failures() {
		b.summary.Failures = append(b.summary.Failures, PageFailure{Page: name, Path: f.Path, Err: f.Err})
	}
	return nil
}

func (b *builder) loaderOptions(name string) []htmlinclude.Option {
	opts := make([]htmlinclude.Option, 0, len(b.opts.LoaderOptions)+1)
	opts = append(opts, b.opts.LoaderOptions...)
	// The page-scoped logger wins over any logger in LoaderOptions
	return append(opts, htmlinclude.WithLogger(b.logger.With("page", name)))
}

func (b *builder) asset(name string) error {
	src, err := b.srcFS.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	if err := b.write(name, src); err != nil {
		return err
	}

	b.mu.Lock()
	b.summary.Assets++
	b.mu.Unlock()
	return nil
}

func (b *builder) write(name string, r io.Reader) error {
	dest := filepath.Join(b.outDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

// RenderPage resolves the includes of the document read from r and writes it
// to w, minified when requested
func RenderPage(ctx context.Context, loader *htmlinclude.Loader, r io.Reader, w io.Writer, minify bool) (htmlinclude.Report, error) {
	if !minify {
		return loader.ProcessDocument(ctx, r, w)
	}

	var buf bytes.Buffer
	report, err := loader.ProcessDocument(ctx, r, &buf)
	if err != nil {
		return report, err
	}
	if err := htmlinclude.Minify(w, &buf); err != nil {
		return report, err
	}
	return report, nil
}
