// # internal/core/watcher/watcher.go
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"apidrift/internal/engine/apiscan"
	"apidrift/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher follows the version directories of one package under a corpus
// root and reports, debounced, which versions changed. A version directory
// is "<pkg>-<version>" directly below the root; only Python sources and
// directory creations count as changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	pkg       string
	debounce  time.Duration
	excludes  []glob.Glob
	onChange  func(versions []string)

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]time.Time
	timer      *time.Timer
}

func NewWatcher(root, pkg string, debounce time.Duration, excludes []string, onChange func(versions []string)) (*Watcher, error) {
	if onChange == nil || strings.TrimSpace(pkg) == "" {
		return nil, os.ErrInvalid
	}

	compiled := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      filepath.Clean(root),
		pkg:       pkg,
		debounce:  debounce,
		excludes:  compiled,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

// Start registers the root and every directory below it, then processes
// events in the background until Close.
func (w *Watcher) Start() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != w.root && w.excluded(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatchEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if w.excluded(event.Name) {
						continue
					}
					if err := w.watchRecursive(event.Name); err != nil {
						slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						continue
					}
					w.scheduleChange(event.Name)
					continue
				}
			}

			if !strings.HasSuffix(event.Name, ".py") || w.excluded(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
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

// scheduleChange records the version path falls under and restarts the
// debounce timer. Paths outside any version directory are dropped.
func (w *Watcher) scheduleChange(path string) {
	version, ok := w.versionOf(path)
	if !ok {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[version] = time.Now()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	versions := make([]string, 0, len(w.pending))
	for version := range w.pending {
		versions = append(versions, version)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(versions) == 0 {
		return
	}
	apiscan.SortVersions(versions)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(versions)
}

func (w *Watcher) versionOf(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	versions := apiscan.VersionsFromArchives(w.pkg, []string{top})
	if len(versions) != 1 {
		return "", false
	}
	return versions[0], true
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludes {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
