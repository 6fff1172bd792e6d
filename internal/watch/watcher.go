package watch

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Change represents a detected modification of the watched file.
type Change struct {
	Path    string
	ModTime time.Time
}

// Watcher monitors a single source file for modification-time advances.
// It polls at a fixed interval; a change that persists for at least one
// interval window is never missed. If the interval is zero or negative
// the watcher is disabled: it never fires after subscription.
type Watcher struct {
	path     string
	interval time.Duration

	mu       sync.Mutex
	onChange func(Change)
	running  bool
	stopCh   chan struct{}

	// lastMod is the last observed modification time. When the file
	// becomes unreadable the value is kept as-is so the next successful
	// stat recovers the watcher without a spurious change event.
	lastMod time.Time
}

// NewWatcher creates a watcher for a single file path.
func NewWatcher(path string, interval time.Duration) *Watcher {
	return &Watcher{
		path:     path,
		interval: interval,
	}
}

// Enabled reports whether the watcher will poll at all.
func (w *Watcher) Enabled() bool {
	return w.interval > 0
}

// OnChange sets the callback invoked when the file's mtime advances.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins polling. It blocks until ctx is cancelled or Stop is
// called. A disabled watcher records the initial mtime and returns nil
// immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	// Baseline: changes before subscription do not fire.
	w.scanInitial()

	if !w.Enabled() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.check()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

// scanInitial records the current mtime as the baseline.
func (w *Watcher) scanInitial() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.lastMod = info.ModTime()
	w.mu.Unlock()
}

// check stats the file once and fires the callback if its mtime advanced.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		// Surface stale-last-known state rather than crashing the
		// pipeline; the next successful stat recovers.
		return
	}

	modTime := info.ModTime()

	w.mu.Lock()
	callback := w.onChange
	advanced := modTime.After(w.lastMod)
	if advanced {
		w.lastMod = modTime
	}
	w.mu.Unlock()

	if advanced && callback != nil {
		callback(Change{Path: w.path, ModTime: modTime})
	}
}
