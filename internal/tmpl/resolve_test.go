package tmpl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flosch/pongo2/v6"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_NearestAncestorWins(t *testing.T) {
	site := t.TempDir()
	writeFile(t, filepath.Join(site, "a", "theme.jinja"), "near")
	writeFile(t, filepath.Join(site, "theme.jinja"), "far")
	start := filepath.Join(site, "a", "b")
	if err := os.MkdirAll(start, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := Resolve(start, "theme.jinja", site, "default.jinja")
	if !ok {
		t.Fatal("expected template to be found")
	}
	if got != filepath.Join(site, "a", "theme.jinja") {
		t.Errorf("resolved %s, want nearest ancestor copy", got)
	}
}

func TestResolve_BoundaryDirNotSearched(t *testing.T) {
	site := t.TempDir()
	writeFile(t, filepath.Join(site, "theme.jinja"), "root-level")
	start := filepath.Join(site, "a")
	if err := os.MkdirAll(start, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, ok := Resolve(start, "theme.jinja", site, "default.jinja"); ok {
		t.Error("boundary directory itself must not be searched")
	}
}

func TestResolve_DefaultNameSkipsAncestorSearch(t *testing.T) {
	site := t.TempDir()
	writeFile(t, filepath.Join(site, "default.jinja"), "parent copy")
	start := filepath.Join(site, "a")
	if err := os.MkdirAll(start, 0o755); err != nil {
		t.Fatal(err)
	}

	// Default only exists in the parent; a direct lookup in start misses.
	if _, ok := Resolve(start, "default.jinja", "/", "default.jinja"); ok {
		t.Error("default template must not be searched in ancestors")
	}

	writeFile(t, filepath.Join(start, "default.jinja"), "local copy")
	got, ok := Resolve(start, "default.jinja", "/", "default.jinja")
	if !ok || got != filepath.Join(start, "default.jinja") {
		t.Errorf("got %q ok=%v, want local default", got, ok)
	}
}

func TestResolve_SeparatorMeansVerbatimPath(t *testing.T) {
	site := t.TempDir()
	writeFile(t, filepath.Join(site, "shared", "base.jinja"), "x")
	start := filepath.Join(site, "docs")
	if err := os.MkdirAll(start, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := Resolve(start, "../shared/base.jinja", site, "default.jinja")
	if !ok {
		t.Fatal("expected relative path to resolve")
	}
	if got != filepath.Join(start, "../shared/base.jinja") {
		t.Errorf("got %q", got)
	}

	if _, ok := Resolve(start, "missing/base.jinja", site, "default.jinja"); ok {
		t.Error("missing verbatim path should not resolve")
	}
}

func TestResolve_MissingEverywhere(t *testing.T) {
	start := t.TempDir()
	if _, ok := Resolve(start, "nope.jinja", "/", "default.jinja"); ok {
		t.Error("expected not found")
	}
}

func TestParentLoader_ExtendsThroughAncestors(t *testing.T) {
	site := t.TempDir()
	writeFile(t, filepath.Join(site, "base.jinja"), "[{% block main %}{% endblock %}]")
	docDir := filepath.Join(site, "a", "b")
	writeFile(t, filepath.Join(docDir, "page.jinja"),
		`{% extends "base.jinja" %}{% block main %}hello{% endblock %}`)

	set := NewSet("test", docDir, filepath.Dir(site), "default.jinja")
	tpl, err := set.FromFile(filepath.Join(docDir, "page.jinja"))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	out, err := tpl.Execute(pongo2.Context{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "[hello]" {
		t.Errorf("out = %q, want [hello]", out)
	}
}
