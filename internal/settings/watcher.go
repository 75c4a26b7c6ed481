package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadFunc re-reads the configuration file and returns the default
// backend it names.
type LoadFunc func() (string, error)

// Watch starts an fsnotify watcher on the config file and re-applies the
// configured default backend whenever the file changes, until ctx is
// cancelled. It calls cb (if non-nil) after each applied change.
//
// Editors typically replace the file (write to temp, rename over), so
// the watch is placed on the parent directory and events are filtered by
// name. Changes are debounced to absorb write bursts.
func Watch(ctx context.Context, st *Settings, configPath string, load LoadFunc, logger *slog.Logger, cb func(backend string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("settings watcher: started", slog.String("config", abs))

	var applyTimer *time.Timer
	var applyCh <-chan time.Time

	scheduleApply := func() {
		if applyTimer == nil {
			applyTimer = time.NewTimer(200 * time.Millisecond)
			applyCh = applyTimer.C
		} else {
			applyTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if applyTimer != nil {
				applyTimer.Stop()
			}
			logger.Info("settings watcher: stopped")
			return nil

		case <-applyCh:
			backend, loadErr := load()
			if loadErr != nil {
				logger.Warn("settings watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			if backend == st.Backend() {
				continue
			}
			if setErr := st.SetBackend(backend); setErr != nil {
				logger.Warn("settings watcher: apply failed", slog.String("error", setErr.Error()))
				continue
			}
			logger.Info("settings watcher: backend switched", slog.String("backend", backend))
			if cb != nil {
				cb(backend)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleApply()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
