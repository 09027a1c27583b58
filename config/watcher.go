package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of filesystem events editors produce
// when saving a file.
const debounceDelay = 500 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands the new
// config to a callback. Invalid configs are logged and skipped; the previous
// config stays in effect.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
	}
}

// Start watches until the context is cancelled. It watches the parent
// directory rather than the file itself because editors typically replace
// the file on save.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsWatcher.Close()

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("Watching config file for changes", "path", w.path)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				debounceC = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// reload re-reads the config file and forwards it if valid.
func (w *Watcher) reload() {
	config, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	if err := config.Validate(); err != nil {
		w.logger.Warn("Reloaded config invalid, keeping previous config", "path", w.path, "error", err)
		return
	}

	w.logger.Info("Config reloaded", "path", w.path)
	w.onChange(config)
}
