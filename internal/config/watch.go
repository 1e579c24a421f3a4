package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long Watch waits after the last filesystem event before
// reloading. Editors tend to emit bursts (write+chmod, or a rename-based
// atomic save) for a single save; reloading once per burst avoids feeding
// half-written files to the parser.
const settleDelay = 200 * time.Millisecond

// Watch monitors the relay config file at path and calls onChange with the
// newly loaded Config after each change. It runs until ctx is cancelled.
//
// Only a subset of settings takes effect at runtime (the caller decides
// which); Watch itself just reloads and hands over the parsed result. If a
// reload fails, the error is logged and the previous config remains active —
// Watch does not call onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("relay config: watching for changes", "path", path)

	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Start (or extend) the settle window for this burst.
			if !settle.Stop() && armed {
				<-settle.C
			}
			settle.Reset(settleDelay)
			armed = true

		case <-settle.C:
			armed = false
			cfg, err := Load(path)
			if err != nil {
				slog.Error("relay config: reload failed, keeping previous",
					"path", path, "err", err)
			} else {
				slog.Info("relay config: reloaded",
					"path", path,
					"eviction_ttl", cfg.Relay.Rooms.EvictionTTL,
					"max_buffered_bytes", cfg.Relay.Backpressure.MaxBufferedBytes,
				)
				onChange(cfg)
			}
			// An atomic save may have replaced the inode; re-add the path so
			// the next save is still observed.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("relay config: watcher error", "err", err)
		}
	}
}
