package identity

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kabiseo/internal/logging"
	"kabiseo/internal/session"
)

// ChangeKind says what happened to the identity file.
type ChangeKind int

const (
	// Cleared: the file was removed (logout from another terminal).
	Cleared ChangeKind = iota + 1
	// Changed: a different identity was saved.
	Changed
)

func (k ChangeKind) String() string {
	switch k {
	case Cleared:
		return "cleared"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Change is one settled modification of the identity file.
type Change struct {
	Kind     ChangeKind
	Identity session.Identity // the new identity for Changed
}

// Watcher watches the identity file's directory and reports when the
// identity the chat was started with goes away or is replaced.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	current     session.Identity
	pending     time.Time // last unsettled event, zero if none
	debounceDur time.Duration
	changes     chan Change
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stopped     bool
}

// NewWatcher prepares a watcher for store. current is the identity the
// chat runs as; only departures from it are reported.
func NewWatcher(store *Store, current session.Identity) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		store:       store,
		current:     current,
		debounceDur: 150 * time.Millisecond, // Coalesce temp-file + rename saves
		changes:     make(chan Change, 4),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Changes delivers settled changes. It is closed when the watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start begins watching. This method is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.store.Path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Identity("watching %s", dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	} else {
		close(w.changes)
	}

	if err := w.watcher.Close(); err != nil {
		logging.IdentityWarn("error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.changes)

	tick := time.NewTicker(w.debounceDur / 3)
	defer tick.Stop()

	target := filepath.Clean(w.store.Path)
	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue // Ignore chmod
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.IdentityWarn("watcher error: %v", err)

		case <-tick.C:
			if change, ok := w.settle(); ok {
				select {
				case w.changes <- change:
				case <-w.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// settle re-reads the file once events have been quiet for the debounce
// window and reports a departure from the current identity.
func (w *Watcher) settle() (Change, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDur {
		return Change{}, false
	}
	w.pending = time.Time{}

	id, err := w.store.Load()
	switch {
	case errors.Is(err, ErrNoIdentity):
		if w.current.Empty() {
			return Change{}, false
		}
		w.current = session.Identity{}
		logging.Identity("identity cleared")
		return Change{Kind: Cleared}, true
	case err != nil:
		logging.IdentityWarn("ignoring unreadable identity: %v", err)
		return Change{}, false
	case id == w.current:
		return Change{}, false
	default:
		w.current = id
		logging.Identity("identity changed")
		return Change{Kind: Changed, Identity: id}, true
	}
}
