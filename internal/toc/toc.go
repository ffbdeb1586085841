// Package toc generates a table of contents for article pages.
//
// Headings are read from the first element carrying the content-article
// class and the resulting nav is inserted before </main>. Everything outside
// the nav is written back exactly as it was read.
package toc

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	nethtml "golang.org/x/net/html"
)

const (
	// ArticleClass marks the element whose headings are listed
	ArticleClass = "content-article"

	// DefaultMinHeadings is the fewest entries worth a table of contents
	DefaultMinHeadings = 3
)

var (
	ErrNoArticle      = errors.New("no ." + ArticleClass + " element found")
	ErrTooFewHeadings = errors.New("too few headings for a table of contents")
	ErrNoMain         = errors.New("no </main> to insert the table of contents before")
)

var (
	existingNav = regexp.MustCompile(`(?s)\s*<nav class="toc">.*?</nav>\s*`)
	mainEnd     = regexp.MustCompile(`(?i)</main\s*>`)
)

const (
	navIndent  = "        "
	listIndent = "            "
	itemIndent = "                "
	levelPad   = "    "
)

// Options controls generation
type Options struct {
	// MinHeadings defaults to DefaultMinHeadings
	MinHeadings int

	// AssignIDs gives article headings without an id a slug id
	AssignIDs bool
}

// Heading is one table of contents entry
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Result describes a generated table of contents
type Result struct {
	Headings []Heading
	MinLevel int
	MaxLevel int

	// Removed counts table of contents navs that were replaced
	Removed int

	// Assigned counts headings that received a generated id
	Assigned int
}

// Generate returns src with a freshly generated table of contents
func Generate(src string, opts Options) (string, Result, error) {
	minHeadings := opts.MinHeadings
	if minHeadings <= 0 {
		minHeadings = DefaultMinHeadings
	}

	doc, headings, assigned, err := scan(src, opts.AssignIDs)
	if err != nil {
		return "", Result{}, err
	}

	// The first h1 is the article title
	if len(headings) > 0 && headings[0].Level == 1 {
		headings = headings[1:]
	}

	if len(headings) < minHeadings {
		return "", Result{}, fmt.Errorf("%w: found %d, need at least %d", ErrTooFewHeadings, len(headings), minHeadings)
	}

	result := Result{
		Headings: headings,
		MinLevel: headings[0].Level,
		MaxLevel: headings[0].Level,
		Assigned: assigned,
	}
	for _, h := range headings {
		result.MinLevel = min(result.MinLevel, h.Level)
		result.MaxLevel = max(result.MaxLevel, h.Level)
	}

	result.Removed = len(existingNav.FindAllStringIndex(doc, -1))
	doc = existingNav.ReplaceAllString(doc, "\n")

	loc := mainEnd.FindStringIndex(doc)
	if loc == nil {
		return "", Result{}, ErrNoMain
	}

	nav := Render(headings)
	out := doc[:loc[0]] + "\n" + nav + "\n    " + doc[loc[0]:]

	return out, result, nil
}

// Render builds the nested nav markup for headings
func Render(headings []Heading) string {
	lines := []string{navIndent + `<nav class="toc">`, listIndent + "<ul>"}
	if len(headings) == 0 {
		return strings.Join(append(lines, listIndent+"</ul>", navIndent+"</nav>"), "\n")
	}

	base := headings[0].Level
	for _, h := range headings {
		base = min(base, h.Level)
	}

	// Depths may only grow one step at a time so every nested list has a parent item
	depths := make([]int, len(headings))
	for i, h := range headings {
		depths[i] = h.Level - base
		if i > 0 && depths[i] > depths[i-1]+1 {
			depths[i] = depths[i-1] + 1
		}
	}

	prev := 0
	for i, h := range headings {
		depth := depths[i]

		for prev > depth {
			pad := itemIndent + strings.Repeat(levelPad, prev-1)
			lines = append(lines, pad+"</ul>", pad+"</li>")
			prev--
		}
		if depth > prev {
			lines = append(lines, itemIndent+strings.Repeat(levelPad, prev)+"<ul>")
		}

		item := fmt.Sprintf(`%s%s<li><a href="#%s">%s</a>`,
			itemIndent, strings.Repeat(levelPad, depth), html.EscapeString(h.ID), html.EscapeString(h.Text))

		next := 0
		if i+1 < len(headings) {
			next = depths[i+1]
		}
		if next <= depth {
			item += "</li>"
		}
		lines = append(lines, item)
		prev = depth
	}

	for prev > 0 {
		pad := itemIndent + strings.Repeat(levelPad, prev-1)
		lines = append(lines, pad+"</ul>", pad+"</li>")
		prev--
	}

	lines = append(lines, listIndent+"</ul>", navIndent+"</nav>")
	return strings.Join(lines, "\n")
}

// pendingHeading buffers a heading until its end tag so its text is known
type pendingHeading struct {
	tag   string
	level int
	id    string
	start string
	inner strings.Builder
}

// scan tokenizes src, collecting h1-h3 headings inside the article. The
// returned document equals src except for assigned ids.
func scan(src string, assignIDs bool) (string, []Heading, int, error) {
	var slugs *slugger
	if assignIDs {
		ids, err := collectIDs(src)
		if err != nil {
			return "", nil, 0, err
		}
		slugs = newSlugger(ids)
	}

	var (
		out        strings.Builder
		headings   []Heading
		assigned   int
		found      bool
		inArticle  bool
		articleTag string
		depth      int
		current    *pendingHeading
	)

	z := nethtml.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return "", nil, 0, fmt.Errorf("failed to tokenize document: %w", z.Err())
		}

		raw := string(z.Raw())
		tok := z.Token()

		switch tt {
		case nethtml.StartTagToken:
			switch {
			case !found && hasClass(tok, ArticleClass):
				found, inArticle = true, true
				articleTag, depth = tok.Data, 1
			case inArticle && current == nil && headingLevel(tok.Data) > 0:
				current = &pendingHeading{
					tag:   tok.Data,
					level: headingLevel(tok.Data),
					id:    attr(tok, "id"),
					start: raw,
				}
				continue
			case inArticle && tok.Data == articleTag:
				depth++
			}

		case nethtml.EndTagToken:
			if current != nil && tok.Data == current.tag {
				text := strings.Join(strings.Fields(html2text.HTML2TextWithOptions(current.inner.String(), html2text.WithLinksInnerText())), " ")
				if current.id == "" && slugs != nil {
					current.id = slugs.unique(Slugify(text))
					current.start = withID(current.start, current.id)
					assigned++
				}
				if current.id != "" {
					headings = append(headings, Heading{Level: current.level, ID: current.id, Text: text})
				}
				out.WriteString(current.start)
				out.WriteString(current.inner.String())
				out.WriteString(raw)
				current = nil
				continue
			}
			if inArticle && current == nil && tok.Data == articleTag {
				depth--
				inArticle = depth > 0
			}
		}

		if current != nil {
			current.inner.WriteString(raw)
			continue
		}
		out.WriteString(raw)
	}

	// An unterminated heading is written back untouched
	if current != nil {
		out.WriteString(current.start)
		out.WriteString(current.inner.String())
	}

	if !found {
		return "", nil, 0, ErrNoArticle
	}

	return out.String(), headings, assigned, nil
}

// collectIDs returns every id attribute value in src
func collectIDs(src string) ([]string, error) {
	var ids []string
	z := nethtml.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return ids, nil
			}
			return nil, fmt.Errorf("failed to tokenize document: %w", z.Err())
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			if id := attr(z.Token(), "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	}
	return 0
}

func attr(tok nethtml.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(tok nethtml.Token, class string) bool {
	for _, c := range strings.Fields(attr(tok, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// withID adds an id attribute to a raw start tag
func withID(start, id string) string {
	trimmed := strings.TrimSuffix(start, ">")
	return trimmed + ` id="` + html.EscapeString(id) + `">`
}
