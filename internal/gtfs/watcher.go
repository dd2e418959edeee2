package gtfs

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"optimetro.kochimetro.org/internal/logging"
)

const reloadDebounce = 250 * time.Millisecond

// startFileWatcher watches the directory holding the feed file, so editors
// and tools that replace the file by rename are seen too.
func (manager *Manager) startFileWatcher(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating GTFS file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("error watching GTFS file %s: %w", path, err)
	}

	manager.wg.Add(1)
	go manager.watchLocalFile(watcher, filepath.Clean(path))
	return nil
}

func (manager *Manager) watchLocalFile(watcher *fsnotify.Watcher, path string) {
	defer manager.wg.Done()
	defer watcher.Close()

	logger := manager.logger.With(slog.String("path", path))
	var reload <-chan time.Time

	for {
		select {
		case <-manager.shutdownChan:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload = time.After(reloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.LogError(logger, "GTFS file watcher error", err)

		case <-reload:
			reload = nil
			logger.Info("GTFS file changed, reloading")
			manager.reload(downloadTimeout)
		}
	}
}
