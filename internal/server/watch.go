package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watchBuckets invalidates bucket listings and notifies event subscribers
// whenever a bucket directory changes. Parent directories are watched too
// so buckets created after startup are picked up.
func (s *Server) watchBuckets(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	s.addBucketWatches(watcher)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// A bucket may have just been created.
				s.addBucketWatches(watcher)
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				s.logger.Debug("bucket changed", "path", name)
				s.buckets.invalidate()
				s.notifier.Broadcast()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// addBucketWatches watches every existing bucket and its parent directory.
// Adding an already watched path is a no-op.
func (s *Server) addBucketWatches(watcher *fsnotify.Watcher) {
	for _, layout := range s.layouts {
		for _, dir := range layout.All() {
			for _, p := range []string{filepath.Dir(dir), dir} {
				if info, err := os.Stat(p); err != nil || !info.IsDir() {
					continue
				}
				if err := watcher.Add(p); err != nil {
					s.logger.Warn("failed to watch directory", "path", p, "error", err)
				}
			}
		}
	}
}
