package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchRatingTable hot-reloads the rating tables when the file changes.
// Blocks until ctx is cancelled. A failed reload keeps the previous tables.
func (s *RatingSource) WatchRatingTable(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rating table watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", s.path, err)
	}

	// Debounce: wait 500ms after the last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := s.Reload(); err != nil {
						slog.Error("rating table reload failed, keeping previous tables", "error", err)
					} else {
						slog.Info("rating table reloaded", "path", s.path)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("rating table watcher error", "error", err)
		}
	}
}
