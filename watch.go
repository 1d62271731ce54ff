// FILE: launchconf/watch.go
package launchconf

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultMaxWatchers = 100 // Prevent resource exhaustion

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid re-resolution
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int

	// ReloadTimeout bounds one re-resolution
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:  DefaultPollInterval,
		Debounce:      DefaultDebounce,
		MaxWatchers:   DefaultMaxWatchers,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

// WatchEvent is one re-resolution outcome. Result is set on success, Err
// on a failed reload. A failed reload never replaces the last good result;
// subscribers decide what to do with the error.
type WatchEvent struct {
	Result *Result
	Err    error
}

// Watcher polls the resolver's base document and re-runs the full
// resolution pipeline when the file changes. Every subscriber receives
// the outcome of each re-resolution.
type Watcher struct {
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	resolver      *Resolver
	opts          WatchOptions
	filePath      string
	lastModTime   time.Time
	lastSize      int64
	missing       bool
	watching      atomic.Bool
	reloadBusy    atomic.Bool
	subscribers   map[int64]chan WatchEvent
	subscriberID  atomic.Int64
	debounceTimer *time.Timer
}

// Watch starts polling the base document and re-resolving on change. The
// resolver must have a base file and must not be reconfigured while the
// watcher runs; re-resolution reuses it as-is. Cancel ctx or call Stop to
// terminate.
func (r *Resolver) Watch(ctx context.Context, opts WatchOptions) (*Watcher, error) {
	if r.baseFile == "" {
		return nil, fmt.Errorf("watch requires a base file")
	}
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		ctx:         wctx,
		cancel:      cancel,
		resolver:    r,
		opts:        opts,
		filePath:    r.baseFile,
		subscribers: make(map[int64]chan WatchEvent),
	}

	if info, err := os.Stat(w.filePath); err == nil {
		w.lastModTime = info.ModTime()
		w.lastSize = info.Size()
	}

	go w.watchLoop()
	return w, nil
}

// Events returns a channel receiving re-resolution outcomes. Each call
// subscribes independently; slow subscribers drop events rather than
// stall the watcher. The channel closes when the watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) >= w.opts.MaxWatchers {
		ch := make(chan WatchEvent)
		close(ch)
		return ch
	}

	ch := make(chan WatchEvent, 10)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// IsWatching reports whether the poll loop is running
func (w *Watcher) IsWatching() bool {
	return w.watching.Load()
}

// Stop terminates the watcher and waits briefly for the loop to exit
func (w *Watcher) Stop() {
	w.cancel()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}

// watchLoop is the main polling loop
func (w *Watcher) watchLoop() {
	if !w.watching.CompareAndSwap(false, true) {
		return // Already watching
	}
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check compares file state and schedules a debounced re-resolution
func (w *Watcher) check() {
	info, err := os.Stat(w.filePath)
	if err != nil {
		if os.IsNotExist(err) && !w.missing {
			// Notify once per disappearance, not every poll
			w.missing = true
			w.notify(WatchEvent{Err: fmt.Errorf("%w: %s", ErrDocumentNotFound, w.filePath)})
		}
		return
	}
	reappeared := w.missing
	w.missing = false

	if !reappeared && info.ModTime().Equal(w.lastModTime) && info.Size() == w.lastSize {
		return
	}
	w.lastModTime = info.ModTime()
	w.lastSize = info.Size()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.reload)
	w.mu.Unlock()
}

// reload re-runs the resolution pipeline and fans the outcome out
func (w *Watcher) reload() {
	if !w.reloadBusy.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadBusy.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	done := make(chan WatchEvent, 1)
	go func() {
		res, err := w.resolver.Resolve()
		if err != nil {
			done <- WatchEvent{Err: err}
			return
		}
		done <- WatchEvent{Result: res}
	}()

	select {
	case ev := <-done:
		w.notify(ev)
	case <-ctx.Done():
		if w.ctx.Err() == nil {
			w.notify(WatchEvent{Err: fmt.Errorf("re-resolution timed out after %v", w.opts.ReloadTimeout)})
		}
	}
}

// notify sends the event to all subscribers without blocking
func (w *Watcher) notify(ev WatchEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, drop
		}
	}
}
