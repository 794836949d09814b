package denylist

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is the delay after a file system event before the store
// checks the file. Editors often emit several events per save.
const WatchDebounce = 100 * time.Millisecond

// Watch refreshes the store whenever the denylist file changes on disk,
// until ctx is done. It complements the check CheckAll performs on every
// call; the modification time stays the only reload trigger.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file and drop a watch
	// placed on the file itself.
	dir := filepath.Dir(s.path)
	name := filepath.Base(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	s.logger.Debug("watching denylist file", "dir", dir, "file", name)

	debounce := time.NewTimer(WatchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			s.logger.Debug("denylist file event", "op", event.Op.String(), "file", event.Name)
			debounce.Reset(WatchDebounce)

		case <-debounce.C:
			s.RefreshIfStale()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
