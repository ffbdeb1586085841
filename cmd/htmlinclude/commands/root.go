// Package commands implements the htmlinclude command line.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude"
	"github.com/livefir/htmlinclude/internal/config"
	"github.com/livefir/htmlinclude/internal/fetch"
	"github.com/livefir/htmlinclude/internal/logging"
	"github.com/livefir/htmlinclude/internal/metrics"
)

// env carries what every command needs once flags are parsed
type env struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewRootCmd builds the htmlinclude command tree
func NewRootCmd(build BuildInfo) *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:           "htmlinclude",
		Short:         "Resolve data-include directives in HTML pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default "+config.ConfigFileName+" if present)")
	cmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&e.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		includeCmd(e),
		buildCmd(e),
		serveCmd(e),
		tocCmd(e),
		galleryCmd(e),
		configCmd(e),
		versionCmd(build),
	)

	return cmd
}

// Execute runs the command tree, printing any error to stderr
func Execute(build BuildInfo) int {
	cmd := NewRootCmd(build)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if e.logFormat != "" {
		cfg.Log.Format = e.logFormat
	}
	// config subcommands must still run on a broken file
	if !isConfigCmd(cmd) {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	e.metrics = metrics.NewCollector()
	return nil
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" && c.HasParent() {
			return true
		}
	}
	return false
}

// loaderOptions maps the config onto loader options
func (e *env) loaderOptions() []htmlinclude.Option {
	return []htmlinclude.Option{
		htmlinclude.WithAttribute(e.cfg.Attribute),
		htmlinclude.WithPlaceholder(e.cfg.Placeholder),
		htmlinclude.WithConcurrency(e.cfg.Concurrency),
		htmlinclude.WithLogger(e.logger),
		htmlinclude.WithRecorder(e.metrics),
	}
}

// cache returns a shared fragment cache when cache_ttl is set
func (e *env) cache() *fetch.Cache {
	if e.cfg.CacheTTL <= 0 {
		return nil
	}
	return fetch.NewCache(e.cfg.CacheTTL)
}

// httpFetcher returns an HTTP fetcher when a base URL is configured
func (e *env) httpFetcher(baseURL string) (fetch.Fetcher, error) {
	if baseURL == "" {
		baseURL = e.cfg.BaseURL
	}
	if baseURL == "" {
		return nil, nil
	}
	f, err := fetch.NewHTTP(fetch.HTTPConfig{
		BaseURL:   baseURL,
		Timeout:   e.cfg.Timeout,
		UserAgent: e.cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// fileFetcher roots a file system fetcher at the configured root directory,
// or at the page's directory, with relative paths resolving from the page
func (e *env) fileFetcher(page string) (fetch.Fetcher, error) {
	pageDir, err := filepath.Abs(filepath.Dir(page))
	if err != nil {
		return nil, err
	}

	root := pageDir
	if e.cfg.RootDir != "" {
		if root, err = filepath.Abs(e.cfg.RootDir); err != nil {
			return nil, err
		}
	}

	rel, err := filepath.Rel(root, pageDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("page %s is outside root_dir %s", page, root)
	}

	return fetch.NewFS(os.DirFS(root)).WithBase(filepath.ToSlash(rel)), nil
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
