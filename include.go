// Package htmlinclude resolves HTML include directives: elements carrying an
// attribute that names another file get that file's content as their own.
//
// A Loader walks a parsed golang.org/x/net/html tree, fetches every
// directive's resource concurrently through a Fetcher, and splices each
// fragment into its element, or a fixed placeholder when the fetch fails:
//
//	loader := htmlinclude.New(fetch.NewFS(os.DirFS("site")))
//	report := loader.Process(ctx, doc)
//
// Failures never abort processing and are never returned as errors; they are
// logged, counted, and listed in the Report.
package htmlinclude

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/livefir/htmlinclude/internal/fetch"
)

const (
	// DefaultAttribute marks elements whose content comes from another file
	DefaultAttribute = "data-include"

	// DefaultPlaceholder replaces the content of an element whose include failed
	DefaultPlaceholder = "<p>Error loading content</p>"
)

// Fetcher retrieves the text of the resource named by an include path
type Fetcher = fetch.Fetcher

// FetcherFunc adapts a plain function to the Fetcher interface
type FetcherFunc = fetch.FetcherFunc

// Recorder receives processing counters. *metrics.Collector implements it.
type Recorder interface {
	AddDirectivesFound(n int)
	IncrementFetchStarted()
	IncrementFetchFinished()
	IncrementPopulated()
	IncrementFailed()
	IncrementPagesProcessed()
}

// Loader resolves include directives in HTML trees.
// Safe for concurrent use; each Process call owns the tree it is given.
type Loader struct {
	fetcher       Fetcher
	attribute     string
	placeholder   string
	concurrency   int
	keepAttribute bool
	logger        *slog.Logger
	recorder      Recorder

	// mu serializes tree mutations across the per-element tasks
	mu sync.Mutex
}

// Option configures a Loader
type Option func(*Loader)

// WithAttribute sets the include-source attribute name
func WithAttribute(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.attribute = name
		}
	}
}

// WithPlaceholder sets the markup injected when an include fails
func WithPlaceholder(markup string) Option {
	return func(l *Loader) { l.placeholder = markup }
}

// WithConcurrency caps fetches in flight per Process call. Zero means unlimited.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n >= 0 {
			l.concurrency = n
		}
	}
}

// WithKeepAttribute controls whether the include attribute stays on the
// element after processing (default: true)
func WithKeepAttribute(keep bool) Option {
	return func(l *Loader) { l.keepAttribute = keep }
}

// WithLogger sets the sink for per-include diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(l *Loader) {
		if r != nil {
			l.recorder = r
		}
	}
}

// New creates a Loader that fetches fragments through f
func New(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:       f,
		attribute:     DefaultAttribute,
		placeholder:   DefaultPlaceholder,
		keepAttribute: true,
		logger:        slog.Default(),
		recorder:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attribute returns the include-source attribute name
func (l *Loader) Attribute() string {
	return l.attribute
}

// directive is one element scheduled for inclusion, captured before any task
// starts so tasks never read the shared tree
type directive struct {
	index   int
	path    string
	element *html.Node
	context *html.Node
}

// Process resolves every include directive under root and returns once each
// element has reached its terminal state. Content injected by an include is
// not scanned for further directives.
func (l *Loader) Process(ctx context.Context, root *html.Node) Report {
	l.recorder.IncrementPagesProcessed()

	elements := findIncludeElements(root, l.attribute)
	if len(elements) == 0 {
		return Report{}
	}
	l.recorder.AddDirectivesFound(len(elements))

	directives := make([]directive, len(elements))
	for i, el := range elements {
		path, _ := getAttr(el, l.attribute)
		directives[i] = directive{
			index:   i,
			path:    path,
			element: el,
			context: detachedContext(el),
		}
		if !l.keepAttribute {
			removeAttr(el, l.attribute)
		}
	}

	results := make([]Result, len(directives))

	var g errgroup.Group
	if l.concurrency > 0 {
		g.SetLimit(l.concurrency)
	}
	for _, d := range directives {
		g.Go(func() error {
			results[d.index] = l.include(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results}
}

// include runs one fetch-and-replace cycle. It never fails: errors end in the
// placeholder state.
func (l *Loader) include(ctx context.Context, d directive) Result {
	result := Result{Path: d.path, Element: d.element}

	l.recorder.IncrementFetchStarted()
	body, err := l.fetcher.Fetch(ctx, d.path)
	l.recorder.IncrementFetchFinished()

	var nodes []*html.Node
	if err == nil {
		nodes, err = parseFragment(body, d.context)
	}

	if err != nil {
		l.logger.Error("Error loading include", "path", d.path, "error", err)
		l.recorder.IncrementFailed()

		placeholder, perr := parseFragment(l.placeholder, d.context)
		if perr != nil {
			placeholder = []*html.Node{{Type: html.TextNode, Data: l.placeholder}}
		}
		l.replace(d.element, placeholder)

		result.State = StateFailed
		result.Err = err
		return result
	}

	l.replace(d.element, nodes)
	l.recorder.IncrementPopulated()
	l.logger.Debug("Loaded include", "path", d.path, "bytes", len(body))

	result.State = StatePopulated
	return result
}

func (l *Loader) replace(el *html.Node, nodes []*html.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	replaceChildren(el, nodes)
}

// ProcessDocument parses a complete HTML document from r, resolves its
// includes, and renders the result to w. Only parse and render failures are
// returned; include failures are reported.
func (l *Loader) ProcessDocument(ctx context.Context, r io.Reader, w io.Writer) (Report, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	report := l.Process(ctx, doc)

	if err := html.Render(w, doc); err != nil {
		return report, fmt.Errorf("failed to render HTML: %w", err)
	}

	return report, nil
}

// ProcessString is ProcessDocument over strings
func (l *Loader) ProcessString(ctx context.Context, document string) (string, Report, error) {
	var sb strings.Builder
	report, err := l.ProcessDocument(ctx, strings.NewReader(document), &sb)
	if err != nil {
		return "", report, err
	}
	return sb.String(), report, nil
}

type nopRecorder struct{}

func (nopRecorder) AddDirectivesFound(int)   {}
func (nopRecorder) IncrementFetchStarted()   {}
func (nopRecorder) IncrementFetchFinished()  {}
func (nopRecorder) IncrementPopulated()      {}
func (nopRecorder) IncrementFailed()         {}
func (nopRecorder) IncrementPagesProcessed() {}
