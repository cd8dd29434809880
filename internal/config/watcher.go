package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"conductor/pkg/logging"
)

const (
	// DefaultDebounceInterval is the quiet period after the last change before
	// the callback fires; editors usually write a file in several steps.
	DefaultDebounceInterval = 500 * time.Millisecond

	// defaultPollInterval is used when fsnotify is unavailable.
	defaultPollInterval = 5 * time.Second
)

// Watcher reports on-disk changes to the configuration file. The running
// fleet is never reconfigured; the callback only informs the operator.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange func(path string)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounceInterval,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file because editors and config management tools replace files by
// renaming.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("ConfigWatcher", "fsnotify not available, falling back to polling: %v", err)
		return w.poll(ctx)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		logging.Warn("ConfigWatcher", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		return w.poll(ctx)
	}

	logging.Debug("ConfigWatcher", "Watching %s for changes", w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("ConfigWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	logging.Debug("ConfigWatcher", "Configuration file event: %s", event)
	w.triggerDebounced()
}

func (w *Watcher) triggerDebounced() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.onChange != nil {
			w.onChange(w.path)
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	var last time.Time
	if info, err := os.Stat(w.path); err == nil {
		last = info.ModTime()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			if info.ModTime().After(last) {
				last = info.ModTime()
				w.triggerDebounced()
			}
		}
	}
}

// Watch runs a Watcher for path until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(path string)) error {
	return NewWatcher(path, onChange).Run(ctx)
}
