package htmlinclude

import (
	"fmt"
	"io"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

const htmlMediaType = "text/html"

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured HTML minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add(htmlMediaType, &html.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
	})
	return minifier
}

// Minify copies an HTML document from r to w with insignificant whitespace
// and comments removed
func Minify(w io.Writer, r io.Reader) error {
	if err := getMinifier().Minify(htmlMediaType, w, r); err != nil {
		return fmt.Errorf("failed to minify HTML: %w", err)
	}
	return nil
}

// MinifyString minifies an HTML document held in a string
func MinifyString(document string) (string, error) {
	out, err := getMinifier().String(htmlMediaType, document)
	if err != nil {
		return "", fmt.Errorf("failed to minify HTML: %w", err)
	}
	return out, nil
}
