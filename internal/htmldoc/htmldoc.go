// Package htmldoc validates that generated game content is a complete,
// self-contained HTML document: inline scripts and styles only, no
// references to external resources. Games run inside a sandboxed frame
// with no network, so an external reference means a broken game.
package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ValidationError describes why a document was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid game document: %s", e.Reason)
}

// Validate checks that content parses as a standalone HTML document.
// Returns a *ValidationError describing the first problem found.
func Validate(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return &ValidationError{Reason: "document is empty"}
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("parse failed: %v", err)}
	}

	if !strings.Contains(strings.ToLower(trimmed), "<html") {
		return &ValidationError{Reason: "missing <html> element"}
	}

	return walk(doc)
}

// IsStandalone reports whether content passes validation.
func IsStandalone(content string) bool {
	return Validate(content) == nil
}

func walk(n *html.Node) error {
	if n.Type == html.ElementNode {
		if err := checkElement(n); err != nil {
			return err
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := walk(c); err != nil {
			return err
		}
	}
	return nil
}

// checkElement rejects elements that pull in external resources.
// Data URIs are allowed: they are still self-contained.
func checkElement(n *html.Node) error {
	switch n.Data {
	case "script":
		if src := attr(n, "src"); src != "" && !isInlineRef(src) {
			return &ValidationError{Reason: fmt.Sprintf("external script %q", src)}
		}
	case "link":
		if rel := attr(n, "rel"); strings.EqualFold(rel, "stylesheet") {
			if href := attr(n, "href"); href != "" && !isInlineRef(href) {
				return &ValidationError{Reason: fmt.Sprintf("external stylesheet %q", href)}
			}
		}
	case "img", "audio", "video", "source", "embed":
		if src := attr(n, "src"); src != "" && !isInlineRef(src) {
			return &ValidationError{Reason: fmt.Sprintf("external %s %q", n.Data, src)}
		}
	case "iframe", "frame", "object":
		return &ValidationError{Reason: fmt.Sprintf("embedded frame element <%s>", n.Data)}
	}
	return nil
}

// isInlineRef accepts references that don't leave the document.
func isInlineRef(ref string) bool {
	ref = strings.TrimSpace(strings.ToLower(ref))
	return strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "#") || ref == "about:blank"
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
