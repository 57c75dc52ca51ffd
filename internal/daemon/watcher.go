package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads the configuration when its files change.
//
// The containing directories are watched rather than the files themselves,
// since editors usually replace a file instead of writing it in place.
// Bursts of events are debounced into one reload.
type ConfigWatcher struct {
	path    string
	files   map[string]bool
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	post    func(*config.Config)

	debounceWindow time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewConfigWatcher watches path and every file it includes. Successfully
// loaded configurations are passed to post; invalid ones are logged and
// dropped.
func NewConfigWatcher(path string, post func(*config.Config), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new fsnotify watcher: %w", err)
	}

	w := &ConfigWatcher{
		path:           filepath.Clean(path),
		watcher:        fsw,
		logger:         logger,
		post:           post,
		debounceWindow: 200 * time.Millisecond,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	w.files = map[string]bool{w.path: true}
	if res, err := config.LoadFromPath(path); err == nil {
		for _, f := range res.Files {
			w.files[filepath.Clean(f)] = true
		}
	}

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Start runs the watch loop in a goroutine.
func (w *ConfigWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop stops the watcher and waits for its loop to exit.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	<-w.doneCh
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounceWindow)
			} else {
				timer.Reset(w.debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.reload()
		}
	}
}

func (w *ConfigWatcher) reload() {
	res, err := config.LoadFromPath(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid configuration", "path", w.path, "error", err)
		return
	}
	w.logger.Info("configuration changed", "path", w.path)
	w.post(res.Config)
}
