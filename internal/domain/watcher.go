package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// DefaultDebounce is how long the watcher waits for saves to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher recompiles entry stylesheets whenever a source in their
// dependency tree changes.
type Watcher struct {
	pipeline  Pipeline
	registry  *Registry
	fsAdapter adapter.SourceFSAdapter
	debounce  time.Duration
}

// NewWatcher constructs a Watcher. A non-positive debounce selects DefaultDebounce.
func NewWatcher(pipeline Pipeline, registry *Registry, fsAdapter adapter.SourceFSAdapter, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		pipeline:  pipeline,
		registry:  registry,
		fsAdapter: fsAdapter,
		debounce:  debounce,
	}
}

// Watch compiles every entry once, then blocks until ctx is done while
// recompiling entries affected by changes. onEvent is called from the
// watching goroutine only.
func (w *Watcher) Watch(ctx context.Context, entries []m.Path, onEvent func(m.WatchEvent)) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries to watch")
	}

	absEntries := make([]m.Path, 0, len(entries))
	for _, entry := range entries {
		abs, err := w.fsAdapter.AbsPath(ctx, entry)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", entry, err)
		}

		absEntries = append(absEntries, abs)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	defer func() {
		if err := fsWatcher.Close(); err != nil {
			slog.Error("Failed to close watcher", "error", err)
		}
	}()

	for _, root := range watchRoots(absEntries) {
		if err := w.addTree(ctx, fsWatcher, root); err != nil {
			return err
		}
	}

	for _, entry := range absEntries {
		w.compile(ctx, entry, nil, onEvent)
	}

	return w.loop(ctx, fsWatcher, absEntries, onEvent)
}

func (w *Watcher) loop(ctx context.Context, fsWatcher *fsnotify.Watcher, entries []m.Path, onEvent func(m.WatchEvent)) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	pending := make(map[m.Path]bool)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Watcher stopped", "reason", ctx.Err())
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}

			if w.handleEvent(ctx, fsWatcher, event) {
				pending[m.Path(event.Name)] = true
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("Watcher error", "error", err)
		case <-timer.C:
			changed := sortedPaths(pending)
			pending = make(map[m.Path]bool)

			for _, entry := range entries {
				if affects(entry, changed) {
					w.compile(ctx, entry, changed, onEvent)
				}
			}
		}
	}
}

// handleEvent reports whether event touches a stylesheet source. New
// directories are added to the watch as they appear.
func (w *Watcher) handleEvent(ctx context.Context, fsWatcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := w.fsAdapter.FileInfo(ctx, m.Path(event.Name)); err == nil && info.IsDir() {
			if err := w.addTree(ctx, fsWatcher, m.Path(event.Name)); err != nil {
				slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}

			return false
		}
	}

	return w.registry.Supports(m.Path(event.Name))
}

func (w *Watcher) compile(ctx context.Context, entry m.Path, changed []m.Path, onEvent func(m.WatchEvent)) {
	artifact, err := w.pipeline.Process(ctx, entry)
	if err != nil {
		slog.Error("Watch compile failed", "entry", entry, "error", err)
	}

	onEvent(m.WatchEvent{Entry: entry, Artifact: artifact, Err: err, Changed: changed})
}

func (w *Watcher) addTree(ctx context.Context, fsWatcher *fsnotify.Watcher, root m.Path) error {
	return w.fsAdapter.Walk(ctx, root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if !info.IsDir() {
			return nil
		}

		if err := fsWatcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		slog.Debug("Watching directory", "path", path)

		return nil
	})
}

// watchRoots returns the distinct base dirs of entries, dropping any
// root nested inside another.
func watchRoots(entries []m.Path) []m.Path {
	seen := make(map[m.Path]bool)
	for _, entry := range entries {
		seen[BaseDir(entry)] = true
	}

	roots := sortedPaths(seen)

	var result []m.Path

	for _, root := range roots {
		if !withinAny(root, result) {
			result = append(result, root)
		}
	}

	return result
}

func withinAny(path m.Path, dirs []m.Path) bool {
	for _, dir := range dirs {
		if within(path, dir) {
			return true
		}
	}

	return false
}

func affects(entry m.Path, changed []m.Path) bool {
	base := BaseDir(entry)
	for _, path := range changed {
		if within(path, base) {
			return true
		}
	}

	return false
}

func within(path, dir m.Path) bool {
	if path == dir {
		return true
	}

	prefix := string(dir)
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(string(path), prefix)
}

func sortedPaths(set map[m.Path]bool) []m.Path {
	paths := make([]m.Path, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i] < paths[j]
	})

	return paths
}
