package tmpl

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/flosch/pongo2/v6"
)

// ParentLoader is a pongo2 template loader that resolves names through the
// same ancestor search as Resolve, so {% extends %} and {% include %}
// inside templates find files the way document-level lookups do.
type ParentLoader struct {
	// Dir is the directory the search starts from (the document's own
	// directory for per-directory template sets).
	Dir string
	// Boundary stops the ancestor search; it is not itself searched.
	Boundary string
	// Default is the configured fallback template name, exempt from the
	// ancestor search.
	Default string
}

var _ pongo2.TemplateLoader = (*ParentLoader)(nil)

func init() {
	// Jinja-style rendering: markdown HTML flows into {{ page.content }}
	// raw, so the Django-style autoescape default is turned off.
	pongo2.SetAutoescape(false)
}

// NewSet returns a pongo2 template set searching from dir.
func NewSet(name, dir, boundary, defaultName string) *pongo2.TemplateSet {
	return pongo2.NewSet(name, &ParentLoader{
		Dir:      dir,
		Boundary: boundary,
		Default:  defaultName,
	})
}

// Abs maps a template name to the path Get will read. Unresolvable names
// pass through unchanged so the engine reports them as not found.
func (l *ParentLoader) Abs(base, name string) string {
	if p, ok := Resolve(l.Dir, name, l.Boundary, l.Default); ok {
		return p
	}
	return name
}

// Get opens a resolved template path.
func (l *ParentLoader) Get(path string) (io.Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tmpl: read template %s: %w", path, err)
	}
	return bytes.NewReader(data), nil
}
