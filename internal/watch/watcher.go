// Package watch reloads the dataset when its source files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is satisfied by services.Analytics.
type Reloader interface {
	Load(ctx context.Context) error
}

// Watcher watches the directories holding the data files and calls the
// reloader once per burst of changes, after the burst has been quiet for the
// debounce interval.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	reloader Reloader
	logger   *slog.Logger
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	reloads  atomic.Int64
	failures atomic.Int64
}

func New(files []string, debounce time.Duration, reloader Reloader, logger *slog.Logger) (*Watcher, error) {
	if reloader == nil {
		return nil, errors.New("watch: nil reloader")
	}
	if logger == nil {
		logger = slog.Default()
	}

	set := make(map[string]bool, len(files))
	var dirs []string
	seen := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", f, err)
		}
		set[abs] = true
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		files:    set,
		dirs:     dirs,
		debounce: debounce,
		reloader: reloader,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start registers the directories and runs the event loop in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.running = true

	w.logger.Info("watching data files", "dirs", w.dirs, "debounce", w.debounce)
	go w.run(ctx)
	return nil
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.watcher.Close()
}

func (w *Watcher) Reloads() int64  { return w.reloads.Load() }
func (w *Watcher) Failures() int64 { return w.failures.Load() }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var pending <-chan time.Time

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
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("data file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
			pending = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-pending:
			pending = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.reloader.Load(ctx); err != nil {
		w.failures.Add(1)
		w.logger.Error("reload after file change failed; keeping previous dataset", "error", err)
		return
	}
	w.reloads.Add(1)
}
