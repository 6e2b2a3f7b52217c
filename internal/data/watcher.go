package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a Watcher is created with a non-positive interval.
const DefaultDebounce = 100 * time.Millisecond

var ErrWatcherRunning = errors.New("watcher already running")

// Watcher reloads a definitions directory when its YAML files change.
// Bursts of events within the debounce interval cause a single reload.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce *Debouncer

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for dir. Call Run to start it.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		debounce: NewDebouncer(debounce),
	}, nil
}

// WatchRegistry reloads r from dir on every change until ctx is cancelled.
func WatchRegistry(ctx context.Context, r *Registry, dir string, debounce time.Duration) error {
	w, err := NewWatcher(dir, debounce)
	if err != nil {
		return err
	}
	return w.Run(ctx, func() error {
		_, err := r.LoadDir(ctx, dir)
		return err
	})
}

// Run blocks until ctx is cancelled, calling onReload after each debounced
// burst of changes. Reload errors are logged and watching continues.
// The underlying fsnotify watcher is closed on return.
func (w *Watcher) Run(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.debounce.Stop()
		if err := w.watcher.Close(); err != nil {
			slog.Warn("closing definitions watcher", "err", err)
		}
	}()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("watching stat tree definitions", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("definitions watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !shouldReload(event) {
				continue
			}
			slog.Debug("definition file changed", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() {
				if err := onReload(); err != nil {
					slog.Error("reloading definitions", "dir", w.dir, "err", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			slog.Error("definitions watcher", "err", err)
		}
	}
}

func shouldReload(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return IsDefinitionFile(event.Name)
}

// Debouncer runs the last triggered callback once no trigger arrived for
// the interval.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one. No-op after Stop.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	d.callback = nil
	stopped := d.stopped
	d.mu.Unlock()

	if cb != nil && !stopped {
		cb()
	}
}

// Stop cancels a pending callback. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
