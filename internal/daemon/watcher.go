package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
)

// Watcher reports configuration and source-tree changes to a callback. The
// configuration file's directory is watched rather than the file itself, so
// editors that save by atomic rename keep triggering reloads after the first
// write.
type Watcher struct {
	configPath string
	roots      []string
	onChange   func(reason, path string)
	fw         *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file and source roots.
// An empty configPath disables config watching; roots that do not exist are
// skipped at Start.
func NewWatcher(configPath string, roots []string, onChange func(reason, path string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.DaemonError("watcher requires a change callback")
	}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryDaemon, errors.SeverityError, "resolve config path")
		}
		configPath = abs
	}
	return &Watcher{
		configPath: configPath,
		roots:      roots,
		onChange:   onChange,
	}, nil
}

// Start registers all watch targets. Run must be called afterwards to consume
// events.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.CategoryDaemon, errors.SeverityError, "create file watcher")
	}
	w.fw = fw

	if w.configPath != "" {
		if err := fw.Add(filepath.Dir(w.configPath)); err != nil {
			_ = fw.Close()
			w.fw = nil
			return errors.Wrap(err, errors.CategoryDaemon, errors.SeverityError, "watch config directory")
		}
	}
	for _, root := range w.roots {
		if err := addDirTree(fw, root); err != nil {
			slog.Warn("Skipping unwatchable source root", logfields.Path(root), logfields.Error(err))
		}
	}
	return nil
}

// Run dispatches filesystem events until the context is canceled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	if w.fw == nil {
		return nil
	}
	return w.fw.Close()
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if w.configPath != "" && sameFile(ev.Name, w.configPath) {
		if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
			slog.Debug("Config file changed", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			w.onChange(ReasonConfig, ev.Name)
		}
		return
	}
	if ignoreEvent(ev.Name) {
		return
	}
	if !w.underRoot(ev.Name) {
		// Event from the config directory for an unrelated file.
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := addDirTree(w.fw, ev.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
			}
		}
	}
	slog.Debug("Source change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.onChange(ReasonSources, ev.Name)
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func sameFile(a, b string) bool {
	abs, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	return abs == b
}

// addDirTree watches root and every directory below it, skipping hidden
// directories and VCS metadata.
func addDirTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && (base == ".git" || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// ignoreEvent reports whether a filesystem event path is noise that should
// not trigger rebuilds: hidden files, VCS internals, and editor temp files.
func ignoreEvent(path string) bool {
	if strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) {
		return true
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
