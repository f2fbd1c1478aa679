package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/bunsho/internal/events"
	"github.com/hyperjump/bunsho/internal/index"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher subscribes to filesystem change notifications under a root and
// applies them incrementally to the index store. Handlers are idempotent
// under reordering and duplication of events: two rapid create
// notifications for the same path never produce two records.
type Watcher struct {
	root        string
	store       *index.Store
	bus         *events.Bus
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger // optional; when set, logs debug events
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (file events, watch errors).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the write-event debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root that reconciles changes into store
// and publishes a ChangeEvent on bus after each persisted mutation.
func NewWatcher(root string, store *index.Store, bus *events.Bus, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		store:       store,
		bus:         bus,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("root", w.root))
	}
	if err := w.addTreeLocked(w.root); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if Supported(path) {
			w.debounceReconcile(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		// A rename away from the watched tree behaves like a delete; the
		// create half of a rename pipeline arrives as its own event.
		w.cancelDebounce(path)
		if Supported(path) {
			w.handleRemove(path)
		}
		w.handleRemoveTree(path)
	}
}

// handleNewDirectory adds a created directory (and its subtree) to the
// watch list and reconciles any files already inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".bunsho" {
				return filepath.SkipDir
			}
			if err := watcher.Add(path); err != nil && w.logger != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if Supported(path) {
			w.debounceReconcile(path)
		}
		return nil
	})
}

// debounceReconcile coalesces rapid create/write bursts for one path into a
// single reconcile after the debounce interval.
func (w *Watcher) debounceReconcile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.reconcile(path)
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// reconcile applies a create-or-modify observation for path to the store.
// An untracked path gets a new record; a tracked path only has its
// ModifiedAt refreshed from stat. The guard against double insertion makes
// the handler safe when a rename pipeline creates-then-deletes, or when
// duplicate create events arrive.
func (w *Watcher) reconcile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// File vanished between the event and the debounce firing.
		return
	}
	if existing, ok := w.store.Get(path); ok {
		existing.ModifiedAt = info.ModTime()
		w.store.Upsert(existing)
		w.publish(models.ChangeModify, path)
		if w.logger != nil {
			w.logger.Debug("watcher refreshed document", zap.String("path", path))
		}
		return
	}
	rec := NewRecord(path, info)
	w.store.Upsert(rec)
	w.publish(models.ChangeCreate, path)
	if w.logger != nil {
		w.logger.Debug("watcher added document", zap.String("path", path))
	}
}

// handleRemoveTree prunes records under a removed directory. Deleting or
// renaming a directory away emits a single event for the directory path,
// never one per file inside it, so the subtree is swept by path prefix.
// For a removed file the prefix matches nothing and this is a no-op.
func (w *Watcher) handleRemoveTree(dirPath string) {
	prefix := dirPath + string(os.PathSeparator)
	for _, rec := range w.store.All() {
		if strings.HasPrefix(rec.Path, prefix) {
			w.handleRemove(rec.Path)
		}
	}
}

func (w *Watcher) handleRemove(path string) {
	if !w.store.Remove(path) {
		return
	}
	w.publish(models.ChangeRemove, path)
	if w.logger != nil {
		w.logger.Debug("watcher removed document", zap.String("path", path))
	}
}

func (w *Watcher) publish(op models.ChangeOp, path string) {
	if w.bus != nil {
		w.bus.Publish(models.ChangeEvent{Op: op, Path: path})
	}
}

func (w *Watcher) addTreeLocked(root string) error {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(root, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".bunsho" {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
