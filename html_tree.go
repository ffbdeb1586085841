package htmlinclude

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findIncludeElements returns every element under n carrying attr, in
// document order
func findIncludeElements(n *html.Node, attr string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := getAttr(n, attr); ok {
				found = append(found, n)
			}
			// Template content is inert
			if n.DataAtom == atom.Template {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return found
}

// FindIncludes returns the include paths under n, in document order
func FindIncludes(n *html.Node, attr string) []string {
	if attr == "" {
		attr = DefaultAttribute
	}
	var paths []string
	for _, el := range findIncludeElements(n, attr) {
		path, _ := getAttr(el, attr)
		paths = append(paths, path)
	}
	return paths
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// detachedContext copies the parts of el the fragment parser reads, so
// parsing can run without touching the live tree
func detachedContext(el *html.Node) *html.Node {
	return &html.Node{
		Type:      html.ElementNode,
		DataAtom:  el.DataAtom,
		Data:      el.Data,
		Namespace: el.Namespace,
	}
}

// parseFragment parses markup the way an innerHTML assignment on an element
// like context would
func parseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	return nodes, nil
}

// replaceChildren drops every child of n and appends nodes in order
func replaceChildren(n *html.Node, nodes []*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
}

// InnerHTML renders the children of n
func InnerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("failed to render node: %w", err)
		}
	}
	return sb.String(), nil
}
