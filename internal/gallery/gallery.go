// Package gallery builds a static photo gallery: square thumbnails, an index
// page linking every photo and one page per photo with prev/back/next links.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultThumbSize   = 500
	DefaultJPEGQuality = 85

	// NavMarker and ImageMarker are replaced in the single photo template
	NavMarker   = "{{nav}}"
	ImageMarker = "{{image}}"
)

var ErrNoMarkers = errors.New("photo template is missing " + NavMarker + " or " + ImageMarker)

// Options locates the gallery files. Relative paths are resolved against Dir.
type Options struct {
	Dir string

	PhotoDir  string
	ThumbDir  string
	PagesDir  string
	IndexFile string
	Header    string
	Footer    string
	PhotoPage string

	ThumbSize   int
	JPEGQuality int
	Workers     int

	Logger *slog.Logger
}

// DefaultOptions returns the conventional gallery layout rooted at dir
func DefaultOptions(dir string) Options {
	return Options{
		Dir:         dir,
		PhotoDir:    "photos_img",
		ThumbDir:    "photos_img_small",
		PagesDir:    "photos",
		IndexFile:   "photo.html",
		Header:      "photo_template.html",
		Footer:      "photo_template_footer.html",
		PhotoPage:   "photos/single_photo_template.html",
		ThumbSize:   DefaultThumbSize,
		JPEGQuality: DefaultJPEGQuality,
	}
}

func (o Options) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Dir, p)
}

// Generate writes thumbnails, the index page and the photo pages. It returns
// the number of photos.
func Generate(ctx context.Context, opts Options) (int, error) {
	if opts.ThumbSize <= 0 {
		opts.ThumbSize = DefaultThumbSize
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	photos, err := ListPhotos(opts.path(opts.PhotoDir))
	if err != nil {
		return 0, err
	}

	header, err := os.ReadFile(opts.path(opts.Header))
	if err != nil {
		return 0, fmt.Errorf("failed to read header template: %w", err)
	}
	footer, err := os.ReadFile(opts.path(opts.Footer))
	if err != nil {
		return 0, fmt.Errorf("failed to read footer template: %w", err)
	}
	page, err := os.ReadFile(opts.path(opts.PhotoPage))
	if err != nil {
		return 0, fmt.Errorf("failed to read photo template: %w", err)
	}
	if !strings.Contains(string(page), NavMarker) || !strings.Contains(string(page), ImageMarker) {
		return 0, ErrNoMarkers
	}

	links, err := opts.Links()
	if err != nil {
		return 0, err
	}

	if err := makeThumbnails(ctx, opts, photos, logger); err != nil {
		return 0, err
	}

	index := string(header) + IndexEntries(photos, links) + string(footer)
	if err := os.MkdirAll(filepath.Dir(opts.path(opts.IndexFile)), 0755); err != nil {
		return 0, fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(opts.path(opts.IndexFile), []byte(index), 0644); err != nil {
		return 0, fmt.Errorf("failed to write index page: %w", err)
	}

	pagesDir := opts.path(opts.PagesDir)
	if err := os.MkdirAll(pagesDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create pages directory: %w", err)
	}
	for n, name := range photos {
		body := strings.Replace(string(page), NavMarker, PageNav(n, len(photos), links), 1)
		body = strings.Replace(body, ImageMarker, PhotoImage(name, links), 1)
		dst := filepath.Join(pagesDir, strconv.Itoa(n)+".html")
		if err := os.WriteFile(dst, []byte(body), 0644); err != nil {
			return 0, fmt.Errorf("failed to write photo page: %w", err)
		}
	}

	logger.Info("Generated gallery", "photos", len(photos), "index", opts.IndexFile)
	return len(photos), nil
}

// ListPhotos returns the JPEG file names in dir, newest name first
func ListPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo directory: %w", err)
	}

	var photos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".jpg" || ext == ".jpeg" {
			photos = append(photos, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(photos)))
	return photos, nil
}

// Links holds the hrefs between gallery files, each relative to the page it
// appears on
type Links struct {
	// PageFromIndex is the photo page directory seen from the index
	PageFromIndex string

	// ThumbFromIndex is the thumbnail directory seen from the index
	ThumbFromIndex string

	// IndexFromPage is the index file seen from a photo page
	IndexFromPage string

	// PageFromPage is the photo page directory seen from a photo page
	PageFromPage string

	// PhotoFromPage is the full-size photo directory seen from a photo page
	PhotoFromPage string
}

// Links derives the gallery hrefs from the configured layout
func (o Options) Links() (Links, error) {
	indexDir := filepath.Dir(o.path(o.IndexFile))
	pagesDir := o.path(o.PagesDir)

	var (
		l        Links
		pageRoot string
		err      error
	)
	rels := []struct {
		dst      *string
		from, to string
	}{
		{&l.PageFromIndex, indexDir, pagesDir},
		{&l.ThumbFromIndex, indexDir, o.path(o.ThumbDir)},
		{&l.IndexFromPage, pagesDir, o.path(o.IndexFile)},
		{&pageRoot, pagesDir, indexDir},
		{&l.PhotoFromPage, pagesDir, o.path(o.PhotoDir)},
	}
	for _, r := range rels {
		if *r.dst, err = relURL(r.from, r.to); err != nil {
			return Links{}, err
		}
	}
	l.PageFromPage = path.Join(pageRoot, l.PageFromIndex)

	return l, nil
}

func relURL(from, to string) (string, error) {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return "", fmt.Errorf("failed to link %s from %s: %w", to, from, err)
	}
	return filepath.ToSlash(rel), nil
}

// dotSlash marks a path below the current directory explicitly
func dotSlash(p string) string {
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return p
	}
	return "./" + p
}

// IndexEntries renders one thumbnail link per photo
func IndexEntries(photos []string, l Links) string {
	var b strings.Builder
	for n, name := range photos {
		fmt.Fprintf(&b, `<a href="%s"><img src="%s"><div class="pointer" id="%d"></div><div class="zoom"></div></a>`+"\n",
			path.Join(l.PageFromIndex, strconv.Itoa(n)+".html"), dotSlash(path.Join(l.ThumbFromIndex, name)), n)
	}
	return b.String()
}

// PageNav renders the prev/back/next links of photo n out of total
func PageNav(n, total int, l Links) string {
	page := func(i int) string {
		return path.Join(l.PageFromPage, strconv.Itoa(i)+".html")
	}

	var b strings.Builder
	if n == 0 {
		fmt.Fprintf(&b, `<a href="%s#1" class="prev">PREV</a>`+"\n", l.IndexFromPage)
	} else {
		fmt.Fprintf(&b, `<a href="%s" class="prev">PREV</a>`+"\n", page(n-1))
	}
	fmt.Fprintf(&b, `<a href="%s#%d">BACK</a>`+"\n", l.IndexFromPage, n)
	if n == total-1 {
		fmt.Fprintf(&b, `<a href="%s#%d" class="next">NEXT</a>`+"\n", l.IndexFromPage, total-1)
	} else {
		fmt.Fprintf(&b, `<a href="%s" class="next">NEXT</a>`+"\n", page(n+1))
	}
	return b.String()
}

// PhotoImage renders the full-size image of a photo page
func PhotoImage(name string, l Links) string {
	return `<img src="` + path.Join(l.PhotoFromPage, name) + `">`
}

func makeThumbnails(ctx context.Context, opts Options, photos []string, logger *slog.Logger) error {
	thumbDir := opts.path(opts.ThumbDir)
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for _, name := range photos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := filepath.Join(opts.path(opts.PhotoDir), name)
			dst := filepath.Join(thumbDir, name)
			if err := writeThumbnail(src, dst, opts.ThumbSize, opts.JPEGQuality); err != nil {
				return fmt.Errorf("failed to make thumbnail for %s: %w", name, err)
			}
			logger.Debug("Wrote thumbnail", "photo", name)
			return nil
		})
	}

	return g.Wait()
}

func writeThumbnail(src, dst string, size, quality int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, Thumbnail(img, size), &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Thumbnail crops the centered square of img and scales it to size x size
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}
