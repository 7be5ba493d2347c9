// Package tmpl resolves template names to files by searching a directory
// and its ancestors, and adapts that search to the pongo2 template engine.
package tmpl

import (
	"os"
	"path/filepath"
	"strings"
)

// Suffix is the file extension appended to template names that carry none.
const Suffix = ".jinja"

// Resolve finds the file for a template name.
//
// The configured default name is treated as a direct path relative to
// startDir with no ancestor search, which keeps a missing fallback template
// from triggering a walk up the tree. A name containing a path separator is
// likewise used as-is. Any other name is searched for in startDir and then
// each parent directory; the search stops without a match when it reaches
// boundary (the boundary directory itself is not searched) or the
// filesystem root.
//
// A miss is an ordinary result, not an error: the caller decides whether
// it is fatal.
func Resolve(startDir, name, boundary, defaultName string) (string, bool) {
	if name == defaultName || hasSeparator(name) {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(startDir, p)
		}
		if fileExists(p) {
			return p, true
		}
		return "", false
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		if dir == boundary {
			return "", false
		}
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func hasSeparator(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
