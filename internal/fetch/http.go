package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultUserAgent is sent with every request unless overridden
	DefaultUserAgent = "htmlinclude"

	// DefaultMaxBodyBytes caps the size of a single fragment
	DefaultMaxBodyBytes int64 = 10 << 20
)

// HTTPConfig holds configuration for an HTTP fetcher
type HTTPConfig struct {
	// BaseURL is the URL relative include paths resolve against.
	// Absolute include URLs work without it.
	BaseURL string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// UserAgent is added to all requests
	UserAgent string

	// MaxBodyBytes caps how much of a response body is read (default: 10 MiB)
	MaxBodyBytes int64

	// Client overrides the HTTP client. Its Transport is used as-is.
	Client *http.Client
}

// HTTP fetches fragments over HTTP(S).
// Safe for concurrent use.
type HTTP struct {
	base         *url.URL
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// NewHTTP creates an HTTP fetcher. Accepts a zero config.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	h := &HTTP{
		client:       cfg.Client,
		timeout:      cfg.Timeout,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}

	if h.client == nil {
		h.client = &http.Client{}
	}
	if h.userAgent == "" {
		h.userAgent = DefaultUserAgent
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL: %w", err)
		}
		if !base.IsAbs() {
			return nil, fmt.Errorf("base URL must be absolute: %s", cfg.BaseURL)
		}
		h.base = base
	}

	return h, nil
}

// Resolve maps an include path to the absolute URL that will be requested
func (h *HTTP) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}
	if h.base == nil {
		return "", fmt.Errorf("%w: relative path %q requires a base URL", ErrInvalidPath, path)
	}

	return h.base.ResolveReference(ref).String(), nil
}

// Fetch performs a GET for path and returns the body as text.
// Any status outside 2xx yields a *StatusError.
func (h *HTTP) Fetch(ctx context.Context, path string) (string, error) {
	target, err := h.Resolve(path)
	if err != nil {
		return "", err
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", target, err)
	}
	if int64(len(body)) > h.maxBodyBytes {
		return "", fmt.Errorf("response from %s exceeds %d bytes", target, h.maxBodyBytes)
	}

	return string(body), nil
}
