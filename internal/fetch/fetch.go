// Package fetch provides the fetch capabilities an include loader resolves
// directives with: HTTP, fs.FS, and a TTL cache that can wrap either.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidPath is returned when an include path cannot be mapped to a resource
var ErrInvalidPath = errors.New("invalid include path")

// Fetcher retrieves the text of the resource named by path
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface
type FetcherFunc func(ctx context.Context, path string) (string, error)

// Fetch calls f(ctx, path)
func (f FetcherFunc) Fetch(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Resolver is implemented by fetchers that can map an include path to the
// canonical location they would read. Caches key on the resolved location.
type Resolver interface {
	Resolve(path string) (string, error)
}

// StatusError is returned when a resource was reached but did not answer
// with a successful status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("file not found: %s (status %d)", e.URL, e.StatusCode)
}
