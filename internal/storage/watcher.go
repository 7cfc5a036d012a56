// ABOUTME: Filesystem watcher that reports writes made by other processes
// ABOUTME: Publishes wildcard changes so long-running surfaces pick up CLI edits
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns filesystem activity in a data directory into hub changes
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	hub      *Hub
	scopes   []Scope
	dir      string
	settle   time.Duration
	logger   *zap.Logger
	dirty    bool
	lastSeen time.Time

	version     VersionFunc
	lastVersion int64
}

// VersionFunc reports a counter that moves only when another process
// commits to the watched database
type VersionFunc func(ctx context.Context) (int64, error)

// NewWatcher watches dir and publishes AnyKey changes for each scope in scopes
func NewWatcher(dir string, hub *Hub, logger *zap.Logger, scopes ...Scope) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		watcher: fw,
		hub:     hub,
		scopes:  scopes,
		dir:     dir,
		settle:  250 * time.Millisecond,
		logger:  logger,
	}, nil
}

// WithVersion makes the watcher drop bursts during which the version did
// not move, so this process's own writes are not republished
func (w *Watcher) WithVersion(fn VersionFunc) *Watcher {
	w.version = fn
	return w
}

// Run processes events until ctx is cancelled. Bursts of writes are
// collapsed into one publication once the directory has been quiet for
// the settle window.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	if w.version != nil {
		v, err := w.version(ctx)
		if err != nil {
			w.logger.Warn("failed to read data version", zap.Error(err))
		}
		w.lastVersion = v
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.dirty = true
			w.lastSeen = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("storage watcher error", zap.String("dir", w.dir), zap.Error(err))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if !w.dirty || time.Since(w.lastSeen) < w.settle {
		w.mu.Unlock()
		return
	}
	w.dirty = false
	w.mu.Unlock()

	if w.version != nil {
		v, err := w.version(ctx)
		switch {
		case err != nil:
			// Unknown origin; publish rather than miss an external edit
			w.logger.Warn("failed to read data version", zap.Error(err))
		case v == w.lastVersion:
			w.logger.Debug("ignoring own storage writes", zap.String("dir", w.dir))
			return
		default:
			w.lastVersion = v
		}
	}

	w.logger.Debug("external storage change", zap.String("dir", w.dir))
	for _, scope := range w.scopes {
		w.hub.Publish(Change{Scope: scope, Key: AnyKey})
	}
}
