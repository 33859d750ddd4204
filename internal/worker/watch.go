package worker

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/martinsuchenak/camdash/internal/log"
)

// DefaultWatchDelay coalesces the several events one save produces.
const DefaultWatchDelay = 300 * time.Millisecond

// Watch reloads source id after the file at path is written or replaced.
// It watches the parent directory so editors that save by renaming a temp
// file over path are still seen. Events arriving within the watch delay of
// each other trigger a single reload. Watch blocks until ctx is cancelled.
func (r *Refresher) Watch(ctx context.Context, id, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	log.Info("Watching inventory file for changes", "path", abs, "source", id)

	timer := time.NewTimer(r.watchDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

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
			timer.Reset(r.watchDelay)

		case <-timer.C:
			if _, err := r.Refresh(ctx, id); err != nil {
				log.Warn("Reload after file change failed, keeping previous snapshot", "path", abs, "error", err)
				continue
			}
			log.Info("Inventory file reloaded", "path", abs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("File watcher error", "error", err)
		}
	}
}
