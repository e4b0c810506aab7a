// Package watch reports batches of addon source changes after a quiet period
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a batch of changes is reported
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherFailed indicates the filesystem watcher failed to initialize
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

var sources = map[string]bool{".py": true, ".xml": true, ".csv": true}

// Handler receives the sorted paths changed during a debounce window
type Handler func(ctx context.Context, paths []string)

// Watcher watches every folder of an addon for source changes
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
}

// New creates a watcher over root and its folders, hidden folders and __pycache__ excluded
func New(root string, debounce time.Duration, logger *logging.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	rootPath, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	result := &Watcher{root: rootPath, debounce: debounce, watcher: watcher, logger: logger.Named("watch")}
	if err = result.addTree(rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return result, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && ignoredDir(entry.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__" || strings.Contains(name, "_backup_")
}

// Run dispatches changed source paths to handler until ctx is done, then closes the watcher
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	defer w.watcher.Close()
	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !ignoredDir(info.Name()) {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn(ctx, "failed to watch new folder", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !sources[filepath.Ext(event.Name)] || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			pending = map[string]bool{}
			w.logger.Debug(ctx, "sources changed", zap.Strings("paths", paths))
			handler(ctx, paths)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", zap.Error(err))
		}
	}
}
