package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change and hands the new, schema-valid
// RuntimeConfig to a callback. It never calls back on a failed reload: the
// caller keeps serving whatever it built from the last successful one.
type Watcher struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher opens an fsnotify watch on path's containing directory. Editors
// that replace a file via rename-over-original only emit events on the
// directory, not the file itself, so the directory is what gets watched.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config dir %s: %w", dir, err)
	}
	return &Watcher{path: path, logger: logger, watcher: fw}, nil
}

// Watch blocks the calling goroutine until stop is closed, invoking onReload
// each time path changes and reparses cleanly. Writes are debounced so a
// multi-write save (truncate then append, common with editors) only
// triggers one reload.
func (w *Watcher) Watch(stop <-chan struct{}, onReload func(*RuntimeConfig)) {
	base := filepath.Base(w.path)
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-stop:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		case <-fire:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("config reload failed, keeping last-good config", "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path, "providers", len(cfg.Providers))
			onReload(cfg)
		}
	}
}

// Close stops the underlying fsnotify watcher without waiting on Watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
