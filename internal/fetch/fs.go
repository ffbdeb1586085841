package fetch

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// FS reads fragments from a file system rooted at a site root.
// Relative include paths resolve against Base, the directory of the page
// being processed; absolute paths resolve against the root. As with a
// web server, ".." never climbs above the root.
type FS struct {
	fsys fs.FS
	base string
}

// NewFS creates a fetcher over fsys with the root as base directory
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys, base: "."}
}

// WithBase returns a copy of the fetcher resolving relative paths against dir
func (f *FS) WithBase(dir string) *FS {
	if dir == "" {
		dir = "."
	}
	return &FS{fsys: f.fsys, base: path.Clean(dir)}
}

// Base returns the directory relative paths resolve against
func (f *FS) Base() string {
	return f.base
}

// Resolve maps an include path to a name inside the file system
func (f *FS) Resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	// Query strings and fragments never name a different file
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.Contains(p, "://") || strings.HasPrefix(p, "//") {
		return "", fmt.Errorf("%w: %q is not a local path", ErrInvalidPath, p)
	}

	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if !strings.HasPrefix(unescaped, "/") {
		unescaped = path.Join(f.base, unescaped)
	}

	name := strings.TrimPrefix(path.Clean("/"+unescaped), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q does not name a file", ErrInvalidPath, p)
	}

	return name, nil
}

// Fetch reads the file named by p. Missing files wrap fs.ErrNotExist.
func (f *FS) Fetch(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := f.Resolve(p)
	if err != nil {
		return "", err
	}

	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	return string(data), nil
}
