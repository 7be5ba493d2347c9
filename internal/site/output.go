package site

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Output manages the generated tree rooted at a single directory. All
// writes are atomic: tmp file, fsync, rename.
type Output struct {
	root string // absolute path to the output directory
}

// OpenOutput resolves root, creating the directory if it does not exist.
func OpenOutput(root string) (*Output, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("output: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("output: create root: %w", err)
	}
	return &Output{root: abs}, nil
}

// Root returns the absolute output directory.
func (o *Output) Root() string { return o.root }

// path resolves a relative destination against the output root and rejects
// any result that escapes it.
func (o *Output) path(rel string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(rel, "/"))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("output: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(o.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("output: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, o.root+string(os.PathSeparator)) && abs != o.root {
		return "", fmt.Errorf("output: path escapes output root: %s", rel)
	}
	return abs, nil
}

// Snapshot walks the output tree and returns the set of existing files as
// root-relative paths.
func (o *Output) Snapshot() (*DestSet, error) {
	set := newDestSet()
	err := filepath.WalkDir(o.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(o.root, p)
		if err != nil {
			return err
		}
		set.add(rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("output: snapshot: %w", err)
	}
	return set, nil
}

// Mtime returns the modification time of a destination file, if it exists.
func (o *Output) Mtime(rel string) (time.Time, bool) {
	abs, err := o.path(rel)
	if err != nil {
		return time.Time{}, false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// WriteFile atomically writes content to a destination, creating parent
// directories as needed.
func (o *Output) WriteFile(rel string, content []byte) error {
	abs, err := o.path(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".statigo-tmp-*")
	if err != nil {
		return fmt.Errorf("output: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("output: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("output: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("output: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("output: rename: %w", err)
	}
	success = true
	return nil
}

// CopyFrom copies the source file byte-for-byte to a destination.
func (o *Output) CopyFrom(src, rel string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("output: read source %s: %w", src, err)
	}
	return o.WriteFile(rel, data)
}

// Reconcile deletes every destination still present in the set and prunes
// an immediate parent directory that became empty. Returns the number of
// files removed.
func (o *Output) Reconcile(set *DestSet, logger *slog.Logger) (int, error) {
	removed := 0
	for _, rel := range set.Remaining() {
		abs, err := o.path(rel)
		if err != nil {
			return removed, err
		}
		if err := os.Remove(abs); err != nil {
			return removed, fmt.Errorf("output: remove %s: %w", rel, err)
		}
		removed++
		logger.Info("removed orphan", slog.String("path", rel))

		parent := filepath.Dir(abs)
		if parent == o.root {
			continue
		}
		entries, err := os.ReadDir(parent)
		if err == nil && len(entries) == 0 {
			if err := os.Remove(parent); err == nil {
				logger.Info("removed empty directory", slog.String("path", filepath.Dir(rel)))
			}
		}
	}
	return removed, nil
}
