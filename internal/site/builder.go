// Package site walks a content tree bottom-up, renders documents through
// directory-scoped templates, and incrementally syncs the results into an
// output tree.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/statigo/statigo/internal/render"
	"github.com/statigo/statigo/internal/tmpl"
)

// Options configure a Builder.
type Options struct {
	// ContentDir is the source tree root.
	ContentDir string
	// OutputDir is the destination tree root, created if absent.
	OutputDir string
	// DefaultTemplate is the fallback template name.
	DefaultTemplate string
	// RootSubdir, when set, surfaces the named top-level content directory
	// at the output root instead of under its own name.
	RootSubdir string
	// Root bounds the ancestor template search; defaults to the working
	// directory at construction time.
	Root string
	// JinjaMarkdown enables the embedded-expression pre-pass.
	JinjaMarkdown bool
	// DateFromFilename derives missing dates from filename stems.
	DateFromFilename bool
	// SkipDirs lists content-relative path prefixes excluded from the walk.
	SkipDirs []string
	// Vars are site-wide template variables.
	Vars map[string]any
	// SetupEnvironment, when set, is invoked once per directory with its
	// template set before any document in it renders.
	SetupEnvironment func(dir string, set *pongo2.TemplateSet)

	Logger *slog.Logger
}

// Stats summarizes one build pass.
type Stats struct {
	Documents  int // documents rendered and written
	Aggregated int // documents collected into aggregation groups
	Copied     int // non-document files copied
	Skipped    int // files skipped by the staleness check
	Removed    int // orphaned outputs deleted
	Duration   time.Duration
}

// Builder runs build passes. It is single-threaded; a pass owns the
// aggregation table and destination set exclusively.
type Builder struct {
	opts       Options
	logger     *slog.Logger
	renderer   *render.Renderer
	contentAbs string

	// table maps a parent directory to its aggregation groups. Built
	// bottom-up in phase one, read-only in phase two.
	table map[string]map[string][]render.Page
}

// New validates options and returns a Builder.
func New(opts Options) (*Builder, error) {
	contentAbs, err := filepath.Abs(opts.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("site: resolve content dir: %w", err)
	}
	info, err := os.Stat(contentAbs)
	if err != nil {
		return nil, fmt.Errorf("site: stat content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site: content dir is not a directory: %s", contentAbs)
	}

	if opts.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("site: resolve root: %w", err)
		}
		opts.Root = wd
	}
	// The resolver compares absolute directories against the boundary; a
	// relative root would never match and the search would run to the
	// filesystem root.
	rootAbs, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("site: resolve root: %w", err)
	}
	opts.Root = rootAbs
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer := render.New(render.Options{
		DefaultTemplate:  opts.DefaultTemplate,
		Boundary:         opts.Root,
		JinjaMarkdown:    opts.JinjaMarkdown,
		DateFromFilename: opts.DateFromFilename,
		Vars:             opts.Vars,
		Logger:           logger,
	})

	return &Builder{
		opts:       opts,
		logger:     logger,
		renderer:   renderer,
		contentAbs: contentAbs,
	}, nil
}

// Build runs one full pass: snapshot the output, build the aggregation
// table bottom-up, render and copy everything else, then delete orphans.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	out, err := OpenOutput(b.opts.OutputDir)
	if err != nil {
		return stats, err
	}
	dest, err := out.Snapshot()
	if err != nil {
		return stats, err
	}

	var nodes []*dirNode
	if err := b.collect(b.contentAbs, ".", &nodes); err != nil {
		return stats, err
	}
	for _, n := range nodes {
		n.set = tmpl.NewSet("dir:"+n.rel, n.abs, b.opts.Root, b.opts.DefaultTemplate)
		if b.opts.SetupEnvironment != nil {
			b.opts.SetupEnvironment(n.abs, n.set)
		}
	}

	// Phase one: populate aggregation groups, children before parents.
	b.table = make(map[string]map[string][]render.Page)
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !n.agg {
			continue
		}
		groups := b.table[n.parentAbs]
		if groups == nil {
			groups = make(map[string][]render.Page)
			b.table[n.parentAbs] = groups
		}
		groups[n.group] = []render.Page{}

		for _, f := range n.files {
			if skipFile(f, tmpl.Suffix) || filepath.Ext(f) != ".md" {
				continue
			}
			page, err := b.renderer.Render(filepath.Join(n.abs, f), n.set, b.extraFor(n.abs), n.roots)
			if err != nil {
				return stats, err
			}
			groups[n.group] = append(groups[n.group], page)
			stats.Aggregated++
		}
	}

	// Phase two: claim destinations, render pages, copy files.
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for _, f := range n.files {
			if skipFile(f, tmpl.Suffix) {
				continue
			}
			if err := b.processFile(n, f, out, dest, &stats); err != nil {
				return stats, err
			}
		}
	}

	removed, err := out.Reconcile(dest, b.logger)
	stats.Removed = removed
	if err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (b *Builder) processFile(n *dirNode, f string, out *Output, dest *DestSet, stats *Stats) error {
	destRel, err := b.destPath(n, f)
	if err != nil {
		return err
	}
	dest.Claim(destRel)

	isDoc := filepath.Ext(f) == ".md"
	if n.agg && isDoc {
		// Collected into the parent's aggregation group in phase one.
		return nil
	}

	srcAbs := filepath.Join(n.abs, f)
	srcInfo, err := os.Stat(srcAbs)
	if err != nil {
		return fmt.Errorf("site: stat %s: %w", srcAbs, err)
	}

	if !isDoc {
		if m, ok := out.Mtime(destRel); ok && !m.Before(srcInfo.ModTime()) {
			stats.Skipped++
			b.logger.Debug("skip unchanged", slog.String("path", destRel))
			return nil
		}
		if err := out.CopyFrom(srcAbs, destRel); err != nil {
			return err
		}
		stats.Copied++
		b.logger.Info("copied", slog.String("path", destRel))
		return nil
	}

	// The mtime skip is unsafe when a sibling aggregation directory may
	// have changed what this document renders, so it only applies when no
	// such directory exists. Aggregation content changes can still be
	// missed through deeper dependencies; that gap is accepted.
	if !n.aggChild {
		if m, ok := out.Mtime(destRel); ok && !m.Before(srcInfo.ModTime()) {
			stats.Skipped++
			b.logger.Debug("skip unchanged", slog.String("path", destRel))
			return nil
		}
	}

	page, err := b.renderer.Render(srcAbs, n.set, b.extraFor(n.abs), n.roots)
	if err != nil {
		return err
	}
	html, ok := page.HTML()
	if !ok {
		// Skipped document; nothing is written but the claim stands.
		return nil
	}
	if err := out.WriteFile(destRel, []byte(html)); err != nil {
		return err
	}
	stats.Documents++
	b.logger.Info("rendered", slog.String("path", destRel))
	return nil
}

// destPath maps a source file to its output-relative destination.
// Aggregation members surface under the parent directory plus the group
// name; the configured root subdirectory surfaces at the output root.
// Documents become .html, everything else keeps its extension.
func (b *Builder) destPath(n *dirNode, f string) (string, error) {
	ext := filepath.Ext(f)
	stem := strings.TrimSuffix(f, ext)

	baseDir := n.abs
	if n.agg {
		baseDir = filepath.Join(n.parentAbs, n.group)
	}
	destroot, err := filepath.Rel(b.contentAbs, filepath.Join(baseDir, stem))
	if err != nil {
		return "", fmt.Errorf("site: destination for %s: %w", f, err)
	}

	if b.opts.RootSubdir != "" {
		first, rest, found := strings.Cut(filepath.ToSlash(destroot), "/")
		if found && first == b.opts.RootSubdir {
			destroot = filepath.FromSlash(rest)
		}
	}

	if ext == ".md" {
		return destroot + ".html", nil
	}
	return destroot + ext, nil
}

// extraFor returns the aggregation variables visible to documents in a
// directory: one key per group registered by its aggregation children.
func (b *Builder) extraFor(dirAbs string) map[string]any {
	groups := b.table[dirAbs]
	if len(groups) == 0 {
		return nil
	}
	extra := make(map[string]any, len(groups))
	for g, pages := range groups {
		extra[g] = pages
	}
	return extra
}
