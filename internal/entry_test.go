package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"

	"github.com/statigo/statigo/internal/testutil"
)

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error when no config is given")
	}
}

func TestRunGeneratesSite(t *testing.T) {
	root, content, output := testutil.TestSite(t)
	testutil.WriteFile(t, content, "default.jinja", "<main>{{ page.content }}</main>")
	testutil.WriteFile(t, content, "index.md", "title: Home\n\n# Hello\n")

	cfg := NewDefaultConfig()
	cfg.Site.ContentDir = content
	cfg.Site.OutputDir = output

	var ended bool
	err := Run(context.Background(),
		WithConfig(cfg),
		WithRoot(root),
		WithCallbacks(Callbacks{EndRun: func() { ended = true }}),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ended {
		t.Error("EndRun callback was not invoked")
	}

	out, err := os.ReadFile(filepath.Join(output, "index.html"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(out), "<main>") || !strings.Contains(string(out), "Hello") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRunCustomFilter(t *testing.T) {
	root, content, output := testutil.TestSite(t)
	testutil.WriteFile(t, content, "default.jinja", "{{ page.title|shout }}")
	testutil.WriteFile(t, content, "page.md", "title: quiet\n\nbody\n")

	shout := func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(strings.ToUpper(in.String())), nil
	}

	cfg := NewDefaultConfig()
	cfg.Site.ContentDir = content
	cfg.Site.OutputDir = output

	err := Run(context.Background(),
		WithConfig(cfg),
		WithRoot(root),
		WithFilters(map[string]pongo2.FilterFunction{"shout": shout}),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(output, "page.html"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(out), "QUIET") {
		t.Errorf("filter not applied: %q", out)
	}
}
