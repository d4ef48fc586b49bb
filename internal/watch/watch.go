// Package watch monitors review dumps and the config file for changes
// and emits change events once a file has stopped being written to.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is emitted when a watched file has settled after being modified.
type Change struct {
	Path      string
	Timestamp time.Time
}

// Watcher tracks the review dump directory and optional extra files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dumpsDir  string
	extra     []string
	debounce  time.Duration

	// pending: path -> time of the last observed write
	pending   map[string]time.Time
	pendingMu sync.Mutex

	changes chan Change
	errors  chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over the dump directory and any extra file paths
// (typically the config file). debounceSec is how long a file must stay
// quiet before a change event is emitted. Paths are resolved to absolute
// form up front since fsnotify events carry absolute names.
func New(dumpsDir string, extra []string, debounceSec int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounceSec <= 0 {
		debounceSec = 2
	}

	absDumps, err := filepath.Abs(dumpsDir)
	if err != nil {
		return nil, err
	}
	absExtra := make([]string, len(extra))
	for i, path := range extra {
		if absExtra[i], err = filepath.Abs(path); err != nil {
			return nil, err
		}
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dumpsDir:  absDumps,
		extra:     absExtra,
		debounce:  time.Duration(debounceSec) * time.Second,
		pending:   make(map[string]time.Time),
		changes:   make(chan Change, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Changes returns the channel of settled file changes.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start registers the watch paths and begins the event loops.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dumpsDir, 0o755); err != nil {
		return err
	}
	if err := w.fsWatcher.Add(w.dumpsDir); err != nil {
		return err
	}

	// Extra files are watched through their parent directory since
	// editors often replace files instead of writing in place.
	for _, path := range w.extra {
		if err := w.fsWatcher.Add(filepath.Dir(path)); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()

	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.changes)
	close(w.errors)
	return w.fsWatcher.Close()
}

// relevant reports whether a path is one we should react to: a review
// dump in the dumps directory, or one of the explicitly watched files.
func (w *Watcher) relevant(path string) bool {
	if filepath.Dir(path) == w.dumpsDir && strings.HasSuffix(path, ".json") {
		return true
	}
	for _, extra := range w.extra {
		if extra == path {
			return true
		}
	}
	return false
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !w.relevant(path) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			w.pendingMu.Lock()
			w.pending[path] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// settleLoop periodically promotes quiet pending files to change events.
func (w *Watcher) settleLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.flushSettled(now)
		}
	}
}

func (w *Watcher) flushSettled(now time.Time) {
	threshold := now.Add(-w.debounce)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	for path, lastWrite := range w.pending {
		if !lastWrite.Before(threshold) {
			continue
		}
		select {
		case w.changes <- Change{Path: path, Timestamp: now}:
			delete(w.pending, path)
		default:
			// Channel full, retry on the next tick.
		}
	}
}

// PendingFiles returns how many files are waiting to settle.
func (w *Watcher) PendingFiles() int {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return len(w.pending)
}
