// Package watch triggers rebuilds when the content tree changes.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a content tree and invokes a callback after changes,
// debounced so bursts of filesystem events collapse into one rebuild.
// Write events whose content checksum is unchanged are ignored, which
// filters the duplicate events editors produce on save.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	onChange func()

	sums map[string]string // path -> content checksum
}

// New returns a Watcher for root. onChange runs on the watcher goroutine
// after each debounced batch of effective changes.
func New(root string, debounce time.Duration, logger *slog.Logger, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		sums:     make(map[string]string),
	}
}

// Run watches until ctx is cancelled. New directories created at runtime
// are added to the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher started", slog.String("root", w.root))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher stopped")
			return nil

		case <-fire:
			w.onChange()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				schedule()
			}

		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", slog.String("error", werr.Error()))
		}
	}
}

// handle reports whether the event should trigger a rebuild.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	path := ev.Name
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addDirsRecursive(fw, path); err != nil {
				w.logger.Warn("watch new dir failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			return true
		}
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, err := os.ReadFile(path)
		if err != nil {
			// The file may be mid-rename; the follow-up event decides.
			return false
		}
		sum := checksum(data)
		if w.sums[path] == sum {
			w.logger.Debug("unchanged content ignored", slog.String("path", path))
			return false
		}
		w.sums[path] = sum
		return true

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.sums, path)
		return true
	}
	return false
}

// addDirsRecursive registers path and its subdirectories with the watcher
// and seeds file checksums so pre-existing content does not retrigger.
func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(p)
		}
		if data, rerr := os.ReadFile(p); rerr == nil {
			w.sums[p] = checksum(data)
		}
		return nil
	})
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
