package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watch calls fn once, then again each time the file at path is written,
// until ctx is cancelled, which returns ErrInterrupted. The parent
// directory is watched so editors that replace the file on save are
// noticed too. Errors from fn are logged and do not stop watching.
func Watch(ctx context.Context, path string, logger *log.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = log.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("unable to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	logger.Info("watching manifest", "path", abs)

	runOnce := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error("run failed", "err", err)
		}
	}
	runOnce()

	// Editors often emit several events per save.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ErrInterrupted

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			logger.Info("manifest changed, regenerating", "path", abs)
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
