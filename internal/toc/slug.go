package toc

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackSlug = "section"

// Slugify turns heading text into an id: lower case, diacritics removed,
// runs of other characters collapsed to a single dash
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, text)
	if err != nil {
		plain = text
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			dash = true
			continue
		}
		if dash && b.Len() > 0 {
			b.WriteByte('-')
		}
		dash = false
		b.WriteRune(r)
	}
	return b.String()
}

type slugger struct {
	seen map[string]bool
}

func newSlugger(existing []string) *slugger {
	s := &slugger{seen: make(map[string]bool, len(existing))}
	for _, id := range existing {
		s.seen[id] = true
	}
	return s
}

// unique returns base, or base with the first free numeric suffix
func (s *slugger) unique(base string) string {
	if base == "" {
		base = fallbackSlug
	}
	id := base
	for n := 2; s.seen[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	s.seen[id] = true
	return id
}
