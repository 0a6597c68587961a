package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadSettle is how long the policy file must be quiet before a reload.
// Editors often truncate then write, which yields several events per save.
const reloadSettle = 100 * time.Millisecond

// Watch monitors the policy file at path and calls onChange with the
// reloaded Config after each save, until ctx is cancelled. The parent
// directory is watched so saves that replace the file by rename keep being
// seen. A reload that fails to parse or validate is logged and skipped;
// onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	slog.Info("config: watching for changes", "path", path)

	settle := time.NewTimer(reloadSettle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				slog.Debug("config: policy file moved away, waiting for replacement", "path", path, "op", event.Op.String())
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settle.Reset(reloadSettle)

		case <-settle.C:
			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous policy", "path", path, "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error, changes may be missed", "path", path, "err", err)
		}
	}
}
