package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docweaver/internal/logfields"
)

const sourcesDirName = "sources"

// Layout is the cache-root directory layout. The zero value is not usable;
// construct with New.
type Layout struct {
	root string
}

// New creates a layout rooted at root. An empty root falls back to a
// docweaver directory under the system temp dir.
func New(root string) *Layout {
	if root == "" {
		root = filepath.Join(os.TempDir(), "docweaver")
	}
	return &Layout{root: root}
}

// Root returns the cache root directory.
func (l *Layout) Root() string {
	return l.root
}

// SourcesDir returns the directory fetched remote source roots live under.
func (l *Layout) SourcesDir() string {
	return filepath.Join(l.root, sourcesDirName)
}

// SourceDir returns the directory one named remote source root is fetched
// into.
func (l *Layout) SourceDir(name string) string {
	return filepath.Join(l.SourcesDir(), name)
}

// Ensure creates the cache root and its sources directory. Safe to call
// repeatedly; existing contents are kept.
func (l *Layout) Ensure() error {
	if err := os.MkdirAll(l.SourcesDir(), 0o750); err != nil {
		return fmt.Errorf("failed to create cache layout: %w", err)
	}
	return nil
}

// CleanSources removes every fetched source, forcing a full refetch on the
// next run. The rest of the cache root (run history) is kept.
func (l *Layout) CleanSources() error {
	entries, err := os.ReadDir(l.SourcesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sources directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(l.SourcesDir(), entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	slog.Info("Cleaned fetched sources", logfields.Path(l.SourcesDir()))
	return nil
}
