package docstore

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for watcher-driven workspace changes. kind is one
// of "board.removed", "file.updated", "file.removed". Board reloads are not
// reported here: they flow through the store's replace callback like every
// other root replacement.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and processes file
// change events until ctx is cancelled. External edits to a loaded board
// document reload it (self-inflicted writes are recognised by checksum and
// ignored); edits to any other file are reported so open pads can learn
// their backing file changed underneath them.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a short reconciliation pass that drops loaded
// roots whose files no longer exist on disk.
func Watch(ctx context.Context, store *Store, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// Atomic writes land as temp files first; never report those.
			if strings.HasPrefix(filepath.Base(absPath), ".ansuz-tmp-") {
				continue
			}

			// New directories: add to watcher.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					continue
				}
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			if strings.HasSuffix(rel, ".json") && store.IsLoaded(rel) {
				switch {
				case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
					changed, reloadErr := store.ReloadIfChanged(rel)
					if reloadErr != nil {
						logger.Warn("watcher: board reload failed", slog.String("path", rel), slog.String("error", reloadErr.Error()))
						continue
					}
					if changed {
						logger.Debug("watcher: board reloaded", slog.String("path", rel))
					}

				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					store.Forget(rel)
					logger.Debug("watcher: board dropped", slog.String("path", rel))
					if cb != nil {
						cb("board.removed", rel)
					}
					scheduleReconcile()
				}
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if cb != nil {
					cb("file.updated", rel)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if cb != nil {
					cb("file.removed", rel)
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename compares every loaded root against the disk and
// repairs drift: vanished files drop their root, changed files reload it.
func reconcileAfterRename(store *Store, logger *slog.Logger, cb EventCallback) {
	for rel, sum := range store.LoadedSums() {
		entry, err := store.ws.Stat(rel)
		if err != nil {
			store.Forget(rel)
			logger.Debug("reconcile: dropped stale root", slog.String("path", rel))
			if cb != nil {
				cb("board.removed", rel)
			}
			continue
		}
		if entry.Checksum == sum {
			continue
		}
		if _, reloadErr := store.ReloadIfChanged(rel); reloadErr != nil {
			logger.Warn("reconcile: reload failed", slog.String("path", rel), slog.String("error", reloadErr.Error()))
		} else {
			logger.Debug("reconcile: reloaded root", slog.String("path", rel))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
