// Package render turns one Markdown document into its final HTML by merging
// variables, converting the body, and applying the resolved template.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/flosch/pongo2/v6"

	"github.com/statigo/statigo/internal/markdown"
	"github.com/statigo/statigo/internal/meta"
	"github.com/statigo/statigo/internal/tmpl"
)

// ErrTemplateNotFound is returned when a template named explicitly in a
// document's front matter cannot be resolved. An unnamed (default) template
// miss is not an error; the document falls back to unthemed HTML.
var ErrTemplateNotFound = errors.New("template not found")

// ErrNotConverged is returned when re-rendering keeps producing template
// markers after the maximum number of passes.
var ErrNotConverged = errors.New("template output did not converge")

// maxPasses bounds the re-render loop. Converging templates finish in one
// or two passes; anything still emitting markers after this many is cyclic.
const maxPasses = 10

// Page is the merged variable mapping handed to the template engine as
// "page". Its "content" key holds the rendered HTML, or nil when the
// document was skipped.
type Page map[string]any

// HTML returns the rendered content and whether the page produced any.
func (p Page) HTML() (string, bool) {
	s, ok := p["content"].(string)
	return s, ok
}

// Options configure a Renderer.
type Options struct {
	// DefaultTemplate is the fallback template name, looked up in the
	// document's directory only.
	DefaultTemplate string
	// Boundary stops the ancestor template search.
	Boundary string
	// JinjaMarkdown enables the embedded-expression pre-pass over the raw
	// Markdown body.
	JinjaMarkdown bool
	// DateFromFilename derives a missing date from the filename stem.
	DateFromFilename bool
	// Vars are site-wide template variables, lowest merge precedence.
	Vars map[string]any

	Logger *slog.Logger
}

// Renderer renders documents. It is stateless across documents.
type Renderer struct {
	md     *markdown.Converter
	opts   Options
	logger *slog.Logger
}

// New returns a Renderer.
func New(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		md:     markdown.New(),
		opts:   opts,
		logger: logger,
	}
}

// Render processes the document at path. The template set must be rooted at
// the document's directory; extra carries the aggregation lists visible to
// this directory; roots is the ancestor relative-path chain.
//
// A skipped document (truthy "skip" key or no front matter at all) returns
// a Page whose content is nil, with no error. Template and pre-pass
// failures, and an explicitly named template that cannot be found, are
// fatal and identify the document.
func (r *Renderer) Render(path string, set *pongo2.TemplateSet, extra map[string]any, roots []string) (Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read %s: %w", path, err)
	}

	m, bodyLines, err := meta.Parse(splitLines(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	hadMeta := len(m) > 0

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	if _, ok := m[meta.KeyDate]; !ok && r.opts.DateFromFilename {
		// A stem that is not a date is simply a document without one.
		if t, perr := dateparse.ParseAny(stem); perr == nil {
			m[meta.KeyDate] = t
		}
	}

	page := Page{}
	for k, v := range r.opts.Vars {
		page[k] = v
	}
	for k, v := range extra {
		page[k] = v
	}
	for k, v := range m {
		page[k] = v
	}
	page["filename"] = name
	page["htmlfile"] = stem + ".html"
	page["roots"] = roots
	page["dir"] = dir

	if !hadMeta || meta.Truthy(page[meta.KeySkip]) {
		r.logger.Debug("skipping document", slog.String("path", path))
		page["content"] = nil
		return page, nil
	}

	body := strings.Join(bodyLines, "\n")

	if r.opts.JinjaMarkdown {
		body, err = r.renderString(set, body, pongo2.Context(page))
		if err != nil {
			return nil, fmt.Errorf("render %s: embedded template: %w", path, err)
		}
	}

	html, err := r.md.Convert([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	page["content"] = html

	tplName, explicit := templateName(m, r.opts.DefaultTemplate)
	resolved, found := tmpl.Resolve(dir, tplName, r.opts.Boundary, r.opts.DefaultTemplate)
	if !found {
		if !explicit {
			// No template is a valid page, just unthemed.
			return page, nil
		}
		return nil, fmt.Errorf("render %s: template %q: %w", path, tplName, ErrTemplateNotFound)
	}

	out, err := r.applyTemplate(set, resolved, page)
	if err != nil {
		return nil, fmt.Errorf("render %s: template %s: %w", path, resolved, err)
	}
	page["content"] = out
	return page, nil
}

// applyTemplate renders the resolved template with page, then keeps
// re-rendering the output as a template while it still contains template
// markers, so variables introduced by one pass resolve in the next.
func (r *Renderer) applyTemplate(set *pongo2.TemplateSet, path string, page Page) (string, error) {
	t, err := set.FromFile(path)
	if err != nil {
		return "", err
	}
	ctx := pongo2.Context{"page": page}
	out, err := t.Execute(ctx)
	if err != nil {
		return "", err
	}

	for pass := 1; hasMarkers(out); pass++ {
		if pass >= maxPasses {
			return "", ErrNotConverged
		}
		out, err = r.renderString(set, out, ctx)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

// renderString treats source as an inline template of the same set.
func (r *Renderer) renderString(set *pongo2.TemplateSet, source string, ctx pongo2.Context) (string, error) {
	t, err := set.FromBytes([]byte(source))
	if err != nil {
		return "", err
	}
	return t.Execute(ctx)
}

// templateName picks the template for a document: the front-matter override
// when present, else the default; a bare name gets the engine suffix. A
// non-string override (a value the coercion turned numeric) is stringified
// rather than ignored, so a bogus name still resolves as explicit and
// fails loudly instead of silently falling back to the default.
func templateName(m meta.Meta, defaultName string) (string, bool) {
	name := defaultName
	explicit := false
	if v, ok := m[meta.KeyTemplate]; ok {
		s, isStr := v.(string)
		if !isStr {
			s = fmt.Sprint(v)
		}
		if s != "" {
			name = s
			explicit = true
		}
	}
	if filepath.Ext(name) == "" {
		name += tmpl.Suffix
	}
	return name, explicit
}

func hasMarkers(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%") || strings.Contains(s, "{#")
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
