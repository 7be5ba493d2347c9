package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) chan struct{} {
	t.Helper()
	changed := make(chan struct{}, 8)
	w := New(root, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), func() {
		changed <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = w.Run(ctx)
	}()
	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	return changed
}

func expectChange(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func expectQuiet(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected change callback")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FiresOnNewFile(t *testing.T) {
	root := t.TempDir()
	changed := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "new.md"), []byte("Title: N\n\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectChange(t, changed)
}

func TestWatcher_FiresOnRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed := startWatcher(t, root)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	expectChange(t, changed)
}

func TestWatcher_IgnoresUnchangedRewrite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.md")
	if err := os.WriteFile(path, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed := startWatcher(t, root)

	// Rewriting identical bytes must not trigger a rebuild.
	if err := os.WriteFile(path, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changed)
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	changed := startWatcher(t, root)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	expectChange(t, changed)

	if err := os.WriteFile(filepath.Join(sub, "inner.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectChange(t, changed)
}
