// Package watch turns fsnotify events under a set of directories into
// debounced callbacks.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 100 * time.Millisecond

// Event is a wrapper around fsnotify.Event
type Event struct {
	Name string
	Op   fsnotify.Op
}

// Filter decides whether a changed path should trigger the callback.
type Filter func(path string) bool

// JSONFiles admits *.json files, which is what the content directory holds.
func JSONFiles(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Watcher handles filesystem events and reports the last event of each burst.
type Watcher struct {
	watcher  *fsnotify.Watcher
	Dirs     []string
	OnEvent  func(Event)
	Filter   Filter
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer

	// held for the duration of OnEvent; bursts never overlap their callbacks
	runMu sync.Mutex
}

// New creates a new watcher for the specified directories
func New(dirs []string, debounce time.Duration, logger *slog.Logger, onEvent func(Event)) (*Watcher, error) {
	if onEvent == nil {
		return nil, errors.New("watch: nil callback")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher:  w,
		Dirs:     dirs,
		OnEvent:  onEvent,
		debounce: debounce,
		logger:   logger,
	}, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		// Skip hidden directories like .git
		if name := d.Name(); path != dir && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run watches until ctx is cancelled. Missing directories are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	watched := 0
	for _, dir := range w.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			w.logger.Warn("watch directory does not exist", "dir", dir)
			continue
		}
		if err := w.addTree(dir); err != nil {
			w.logger.Error("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return errors.New("watch: no directories to watch")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// Ignore chmod and other meta events
	if event.Op == fsnotify.Chmod {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
			return
		}
	}

	if w.Filter != nil && !w.Filter(event.Name) {
		return
	}

	ev := Event{Name: event.Name, Op: event.Op}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ev) })
}

func (w *Watcher) fire(ev Event) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	w.OnEvent(ev)
}
