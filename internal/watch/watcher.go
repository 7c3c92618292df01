// Package watch notices edits to the files a run depends on, so apply --watch
// can converge again after the descriptor changes.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"warren/pkg/logging"
)

// Operation is what happened to a watched file.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Change is one debounced file change.
type Change struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher reports changes to a set of files. Files can be added while it
// runs.
//
// The parent directories are watched rather than the files themselves:
// editors and configuration tools replace files by renaming a temporary
// over them, which drops a watch placed on the file.
type Watcher struct {
	mu sync.Mutex

	files    map[string]bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]*pendingChange
	stopCh   chan struct{}
	done     chan struct{}
	running  bool
}

type pendingChange struct {
	change Change
	timer  *time.Timer
}

// New returns a watcher for paths. A zero debounce defaults to 500ms.
func New(paths []string, debounce time.Duration) *Watcher {
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = true
		}
	}
	return &Watcher{
		files:    files,
		debounce: debounce,
		pending:  make(map[string]*pendingChange),
	}
}

// Start begins watching. Changes are sent on changes until ctx is done or
// Stop is called; a full channel drops the change with a warning.
func (w *Watcher) Start(ctx context.Context, changes chan<- Change) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return err
		}
		logging.Debug("Watch", "Watching directory: %s", dir)
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.loop(ctx, watcher, changes)

	logging.Info("Watch", "Watching %d file(s) for changes", len(w.files))
	return nil
}

// Add starts reporting changes to path as well. Adding a path that is
// already watched is a no-op.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[abs] {
		return nil
	}
	if w.running {
		dir := filepath.Dir(abs)
		if !w.watchesDir(dir) {
			if err := w.watcher.Add(dir); err != nil {
				return err
			}
			logging.Debug("Watch", "Watching directory: %s", dir)
		}
	}
	w.files[abs] = true
	logging.Info("Watch", "Watching %s for changes", abs)
	return nil
}

func (w *Watcher) watchesDir(dir string) bool {
	for f := range w.files {
		if filepath.Dir(f) == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- Change) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case <-w.stopCh:
			w.cancelPending()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handle(event, changes)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watch", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, changes chan<- Change) {
	path := filepath.Clean(event.Name)
	w.mu.Lock()
	watched := w.files[path]
	w.mu.Unlock()
	if !watched {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OperationCreate
	case event.Has(fsnotify.Write):
		op = OperationUpdate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OperationDelete
	default:
		return
	}

	w.schedule(Change{Path: path, Operation: op, Timestamp: time.Now()}, changes)
}

// schedule coalesces bursts of events for one file into a single change.
func (w *Watcher) schedule(change Change, changes chan<- Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[change.Path]; ok {
		p.timer.Stop()
		change.Operation = mergeOperations(p.change.Operation, change.Operation)
	}

	key := change.Path
	timer := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		p, ok := w.pending[key]
		if ok {
			delete(w.pending, key)
		}
		w.mu.Unlock()
		if !ok {
			return
		}
		select {
		case changes <- p.change:
			logging.Debug("Watch", "Emitted change: %s %s", p.change.Operation, p.change.Path)
		default:
			logging.Warn("Watch", "Change channel full, dropping change for %s", p.change.Path)
		}
	})
	w.pending[key] = &pendingChange{change: change, timer: timer}
}

// mergeOperations folds a new operation into a pending one.
func mergeOperations(old, next Operation) Operation {
	if old == OperationCreate && next == OperationUpdate {
		return OperationCreate
	}
	if old == OperationDelete && next == OperationCreate {
		// A rename over the file: its content changed.
		return OperationUpdate
	}
	return next
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingChange)
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.done
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	<-done
	return watcher.Close()
}
