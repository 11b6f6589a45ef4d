package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"testrig/pkg/logging"
)

// DefaultDebounceInterval is how long the watcher waits after the last change
// to FileName before reloading.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watcher reloads FileName from a config directory whenever it changes.
type Watcher struct {
	configPath string
	debounce   time.Duration
	onChange   func(RigConfig, error)
	fs         *fsnotify.Watcher
}

// NewWatcher starts watching configPath. onChange receives the result of
// LoadConfig after every settled change, including removal of the file.
func NewWatcher(configPath string, onChange func(RigConfig, error)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// The directory is watched so that editors replacing the file are seen.
	if err := fs.Add(configPath); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", configPath, err)
	}
	return &Watcher{
		configPath: configPath,
		debounce:   DefaultDebounceInterval,
		onChange:   onChange,
		fs:         fs,
	}, nil
}

// Run delivers changes until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	logging.Info("Config", "Watching %s for changes", filepath.Join(w.configPath, FileName))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != FileName || event.Op == fsnotify.Chmod {
				continue
			}
			logging.Debug("Config", "%s: %s", event.Op, event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.Error("Config", err, "File watcher error")
		case <-timer.C:
			w.onChange(LoadConfig(w.configPath))
		}
	}
}
