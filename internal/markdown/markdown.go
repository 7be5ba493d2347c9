// Package markdown converts Markdown document bodies to HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter renders Markdown to HTML. A fresh goldmark engine is built for
// every document so per-document state such as footnote counters never
// leaks between conversions.
type Converter struct{}

// New returns a Converter.
func New() *Converter {
	return &Converter{}
}

// Convert renders src to HTML.
func (c *Converter) Convert(src []byte) (string, error) {
	engine := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			// Documents are trusted local content; raw HTML passes through.
			html.WithUnsafe(),
		),
	)

	var buf bytes.Buffer
	if err := engine.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return buf.String(), nil
}
