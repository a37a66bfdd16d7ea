// Package watcher reports changed MiniPar sources, coalescing bursts of
// file system events into one callback.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// SourceExt is the extension of files picked up from watched directories.
const SourceExt = ".mp"

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	exclude   []glob.Glob
	onChange  func([]string)

	// files named explicitly, and directory roots whose sources all count
	files map[string]bool
	roots []string

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]struct{}
	timer      *time.Timer

	done chan struct{}
}

// NewWatcher compiles the exclude patterns, which match base names.
func NewWatcher(debounce time.Duration, exclude []string, onChange func([]string)) (*Watcher, error) {
	w := &Watcher{
		debounce: debounce,
		onChange: onChange,
		files:    make(map[string]bool),
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		w.exclude = append(w.exclude, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsWatcher = fsw
	return w, nil
}

// Watch starts delivering events for paths. A file is watched through its
// directory so editors that replace the file on save are still seen; a
// directory is watched recursively for source files.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(abs)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			w.files[abs] = true
			if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
				return err
			}
			continue
		}

		w.roots = append(w.roots, abs)
		if err := w.watchRecursive(abs); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create == fsnotify.Create && w.underRoot(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.excluded(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("source changed", "path", event.Name, "op", event.Op.String())
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[filepath.Clean(path)] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	if w.excluded(path) {
		return false
	}
	if w.files[path] {
		return true
	}
	return filepath.Ext(path) == SourceExt && w.underRoot(path)
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.exclude {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

// Done is closed once the event loop has exited after Close.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
