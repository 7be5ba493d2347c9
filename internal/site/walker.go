package site

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// AggPrefix marks aggregation directories: their documents are collected
// into a named list for the parent directory instead of being written out.
const AggPrefix = "_"

// dirNode is one directory of the content tree, visited in post-order.
type dirNode struct {
	abs       string
	rel       string // relative to the content root, "." for the root
	parentAbs string
	files     []string // regular file names, in sorted listing order
	roots     []string // ancestor relative-path chain
	agg       bool
	group     string // aggregation group name (basename without prefix)
	aggChild  bool   // directory has at least one aggregation subdirectory
	set       *pongo2.TemplateSet
}

// collect walks the tree rooted at abs depth-first, following symlinked
// directories, and appends nodes in post-order so children always precede
// their parent. Directories matching a skip prefix are not entered at all.
func (b *Builder) collect(abs, rel string, out *[]*dirNode) error {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("site: read dir %s: %w", abs, err)
	}

	node := &dirNode{
		abs:       abs,
		rel:       rel,
		parentAbs: filepath.Dir(abs),
		roots:     rootsChain(rel),
	}

	for _, e := range entries {
		name := e.Name()
		isDir := e.IsDir()
		if !isDir && e.Type()&fs.ModeSymlink != 0 {
			if info, statErr := os.Stat(filepath.Join(abs, name)); statErr == nil && info.IsDir() {
				isDir = true
			}
		}

		if !isDir {
			node.files = append(node.files, name)
			continue
		}

		if strings.HasPrefix(name, AggPrefix) {
			node.aggChild = true
		}

		childRel := name
		if rel != "." {
			childRel = filepath.Join(rel, name)
		}
		if b.skipDir(childRel) {
			continue
		}
		if err := b.collect(filepath.Join(abs, name), childRel, out); err != nil {
			return err
		}
	}

	if rel != "." {
		if base := filepath.Base(abs); strings.HasPrefix(base, AggPrefix) {
			node.agg = true
			node.group = strings.TrimPrefix(base, AggPrefix)
		}
	}

	*out = append(*out, node)
	return nil
}

// skipDir reports whether a content-relative directory path matches one of
// the configured skip prefixes.
func (b *Builder) skipDir(rel string) bool {
	for _, prefix := range b.opts.SkipDirs {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

// rootsChain returns the chain of ancestor relative-path prefixes for a
// directory, root-first: "a/b" yields ["a", "a/b"].
func rootsChain(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	chain := make([]string, len(parts))
	for i := range parts {
		chain[i] = strings.Join(parts[:i+1], "/")
	}
	return chain
}

// skipFile reports whether a file is never processed: hidden files and raw
// template files.
func skipFile(name, tmplSuffix string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, tmplSuffix)
}
