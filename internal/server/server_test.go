package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livefir/htmlinclude"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	site := fstest.MapFS{
		"index.html":            {Data: []byte(`<html><body><header data-include="partials/nav.html"></header></body></html>`)},
		"writings/index.html":   {Data: []byte(`<div data-include="../partials/nav.html"></div>`)},
		"writings/article.html": {Data: []byte(`<div data-include="missing.html"></div>`)},
		"partials/nav.html":     {Data: []byte(`<nav>menu</nav>`)},
		"css/site.css":          {Data: []byte(`body{}`)},
	}

	s, err := New(Options{
		FS:     site,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_ResolvesIncludes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		target   string
		status   int
		validate func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:   "root index",
			target: "/",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), `<header data-include="partials/nav.html"><nav>menu</nav></header>`)
			},
		},
		{
			name:   "explicit page",
			target: "/index.html",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `<nav>menu</nav>`)
			},
		},
		{
			name:   "nested index resolves relative to its directory",
			target: "/writings/",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `<nav>menu</nav>`)
			},
		},
		{
			name:   "failed include still serves the page",
			target: "/writings/article.html",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), htmlinclude.DefaultPlaceholder)
			},
		},
		{
			name:   "static asset",
			target: "/css/site.css",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "body{}", rec.Body.String())
			},
		},
		{
			name:   "directory without slash redirects",
			target: "/writings",
			status: http.StatusMovedPermanently,
		},
		{
			name:   "missing file",
			target: "/nope.html",
			status: http.StatusNotFound,
		},
		{
			name:   "health",
			target: "/healthz",
			status: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "ok", rec.Body.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.validate != nil {
				tt.validate(t, rec)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)

	get(t, s, "/")
	get(t, s, "/writings/article.html")

	m := s.Metrics().GetMetrics()
	assert.Equal(t, int64(2), m.PagesProcessed)
	assert.Equal(t, int64(1), m.IncludesPopulated)
	assert.Equal(t, int64(1), m.IncludesFailed)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "htmlinclude_includes_populated_total 1")
	assert.Contains(t, body, "htmlinclude_includes_failed_total 1")
}

func TestServer_TraversalStaysInsideRoot(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []string{"/../../etc/passwd", "/writings/../../partials/nav.html/../../../x"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = p
		rec := httptest.NewRecorder()
		s.handleSite(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
	}
}

func TestServer_DiagnosticsNamePage(t *testing.T) {
	var logs bytes.Buffer
	s, err := New(Options{
		FS: fstest.MapFS{
			"docs/page.html": {Data: []byte(`<div data-include="gone.html"></div>`)},
		},
		Logger:        slog.New(slog.NewTextHandler(&logs, nil)),
		LoaderOptions: []htmlinclude.Option{htmlinclude.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))},
	})
	require.NoError(t, err)

	rec := get(t, s, "/docs/page.html")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, logs.String(), `msg="Error loading include"`)
	assert.Contains(t, logs.String(), "page=docs/page.html")
}

func TestServer_RejectsWrites(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/index.html", strings.NewReader("x")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Head(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Root: "/definitely/not/here"})
	assert.Error(t, err)
}
