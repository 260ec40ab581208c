// Package watch reports which playlist folders changed on disk. Changes are
// debounced per top-level folder and handed to a callback one at a time.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"plexsync/pkg/logging"
)

// Handler is called with the name of a top-level folder whose media changed.
type Handler func(ctx context.Context, name string)

type Watcher struct {
	root        string
	exts        map[string]bool
	watcher     *fsnotify.Watcher
	settleDelay time.Duration
	handler     Handler

	mu      sync.Mutex
	pending map[string]*time.Timer
	folders map[string]bool

	// runMu keeps handler calls from overlapping.
	runMu sync.Mutex
}

func New(root string, exts map[string]bool, settleDelay time.Duration, handler Handler) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:        filepath.Clean(root),
		exts:        exts,
		watcher:     watcher,
		settleDelay: settleDelay,
		handler:     handler,
		pending:     make(map[string]*time.Timer),
		folders:     make(map[string]bool),
	}, nil
}

// Start watches until ctx is canceled. Pending callbacks are dropped on return.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stopPending()

	if err := w.addWatchRecursive(w.root); err != nil {
		return fmt.Errorf("failed to add watch paths: %w", err)
	}

	logging.Info("Watching %s for media changes", w.root)

	for {
		select {
		case <-ctx.Done():
			logging.Info("File watcher shutting down...")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logging.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) addWatchRecursive(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error walking path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Warn("Failed to watch directory %s: %v", path, err)
			return nil
		}
		logging.Debug("Watching directory %s", path)
		if owner, topLevel := w.owner(path); topLevel {
			w.mu.Lock()
			w.folders[owner] = true
			w.mu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	owner, topLevel := w.owner(event.Name)
	if owner == "" {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Files copied in with the folder may predate the watch.
			w.addWatchRecursive(event.Name)
			w.schedule(ctx, owner)
			return
		}
	}

	// Incremental refreshes only append, so a media file disappearing changes
	// nothing; its entry stays until the next full regenerate.
	changed := event.Op&(fsnotify.Create|fsnotify.Write) != 0
	gone := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	switch {
	case changed && !topLevel && w.isMedia(event.Name):
		w.schedule(ctx, owner)
	case gone && topLevel && w.forget(owner):
		w.schedule(ctx, owner)
	}
}

// owner returns the top-level folder under root that contains path, and whether
// path is that folder itself. Hidden folders and paths outside root have no owner.
func (w *Watcher) owner(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if strings.HasPrefix(parts[0], ".") {
		return "", false
	}
	return parts[0], len(parts) == 1
}

// forget drops a watched top-level folder and reports whether it was known.
func (w *Watcher) forget(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	known := w.folders[name]
	delete(w.folders, name)
	return known
}

func (w *Watcher) isMedia(path string) bool {
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[name]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.settleDelay, func() {
		w.fire(ctx, name, timer)
	})
	w.pending[name] = timer

	logging.Debug("Scheduled refresh of '%s' in %s", name, w.settleDelay)
}

// fire runs the handler for name unless timer was replaced or stopped after it
// expired. The replacing timer owns the refresh.
func (w *Watcher) fire(ctx context.Context, name string, timer *time.Timer) {
	w.mu.Lock()
	if w.pending[name] != timer {
		w.mu.Unlock()
		return
	}
	delete(w.pending, name)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	w.runMu.Lock()
	defer w.runMu.Unlock()
	w.handler(ctx, name)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
}

// Pending returns the number of folders waiting for their settle delay.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
