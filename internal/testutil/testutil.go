// Package testutil provides shared test helpers for setting up site trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSite creates a temporary site root with content/ and output/
// subdirectories and returns the three paths.
func TestSite(t *testing.T) (root, content, output string) {
	t.Helper()
	root = t.TempDir()
	content = filepath.Join(root, "content")
	output = filepath.Join(root, "output")
	if err := os.MkdirAll(content, 0o755); err != nil {
		t.Fatal(err)
	}
	return root, content, output
}

// WriteFile writes a file under dir, creating parent directories as needed.
func WriteFile(t *testing.T, dir, rel, body string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
