// Package watcher auto-ingests PDFs dropped into configured directories,
// using fsnotify with per-file debouncing so half-written files are not
// converted mid-copy.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// IngestFunc is called with the path of a settled PDF to convert and store.
type IngestFunc func(path string)

// RemoveFunc is called with the path of a deleted PDF so its stored
// document can be dropped.
type RemoveFunc func(path string)

// Watcher watches directory roots and invokes callbacks for PDF files.
type Watcher struct {
	roots     []string
	recursive bool
	onIngest  IngestFunc
	onRemove  RemoveFunc
	debounce  time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	pending  map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// New creates a watcher over the given roots. Roots that do not exist yet
// are created on Start.
func New(roots []string, recursive bool, onIngest IngestFunc, onRemove RemoveFunc, logger *zap.Logger) *Watcher {
	return &Watcher{
		roots:     roots,
		recursive: recursive,
		onIngest:  onIngest,
		onRemove:  onRemove,
		debounce:  defaultDebounce,
		logger:    logger,
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	for _, root := range w.roots {
		if err := w.watchTreeLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	w.logger.Info("watching for papers", zap.Strings("roots", w.roots), zap.Bool("recursive", w.recursive))
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
	})
}

// SyncExistingFiles ingests every PDF already present under the roots.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if !w.recursive && filepath.Clean(path) != filepath.Clean(root) {
					return fs.SkipDir
				}
				return nil
			}
			if isPDF(path) && w.onIngest != nil {
				w.onIngest(path)
			}
			return nil
		})
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.recursive {
				w.mu.Lock()
				_ = w.watchTreeLocked(path)
				w.mu.Unlock()
			}
			return
		}
		if isPDF(path) {
			w.scheduleIngest(path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelPending(path)
		if isPDF(path) && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// scheduleIngest (re)arms the debounce timer for path; the ingest callback
// fires only after writes stop for the debounce window.
func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("ingesting paper", zap.String("path", path))
		if w.onIngest != nil {
			w.onIngest(path)
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// watchTreeLocked registers root (and its subdirectories when recursive)
// with the fsnotify watcher, creating root if missing.
func (w *Watcher) watchTreeLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
