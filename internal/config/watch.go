package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	appLog "pogoslides/internal/log"
)

// Watch starts a background goroutine that re-reads the config whenever the
// file changes and hands the result to onChange. A config that fails to load
// is logged and skipped, leaving the previous one in effect. Call the
// returned stop function to clean up.
func Watch(path string, onChange func(*Config)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					appLog.Error("config reload failed, keeping previous", err, "path", path)
					continue
				}
				appLog.Info("config reloaded", "path", path)
				onChange(cfg)
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				appLog.Warn("config watcher error", "err", werr)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
