package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	l := New(root)

	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}

	if _, err := os.Stat(l.SourcesDir()); err != nil {
		t.Errorf("sources directory missing: %v", err)
	}
	if l.Root() != root {
		t.Errorf("Root() = %s, want %s", l.Root(), root)
	}
}

func TestEnsureKeepsExistingContents(t *testing.T) {
	root := t.TempDir()
	l := New(root)
	if err := l.Ensure(); err != nil {
		t.Fatalf("first Ensure() failed: %v", err)
	}

	marker := filepath.Join(l.SourceDir("repo"), "marker.txt")
	if err := os.MkdirAll(l.SourceDir("repo"), 0o750); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	if err := os.WriteFile(marker, []byte("kept"), 0o600); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	if err := l.Ensure(); err != nil {
		t.Fatalf("second Ensure() failed: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Ensure() removed existing contents: %v", err)
	}
}

func TestCleanSourcesRemovesFetchedRepos(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}

	repo := l.SourceDir("repo")
	if err := os.MkdirAll(repo, 0o750); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}

	if err := l.CleanSources(); err != nil {
		t.Fatalf("CleanSources() failed: %v", err)
	}
	if _, err := os.Stat(repo); !os.IsNotExist(err) {
		t.Errorf("fetched source still exists after CleanSources")
	}
	if _, err := os.Stat(l.SourcesDir()); err != nil {
		t.Errorf("sources directory itself must survive: %v", err)
	}
}

func TestCleanSourcesOnMissingDirIsNoop(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "never-created"))
	if err := l.CleanSources(); err != nil {
		t.Fatalf("CleanSources() on missing dir failed: %v", err)
	}
}

func TestEmptyRootFallsBackToTempDir(t *testing.T) {
	l := New("")
	if l.Root() == "" {
		t.Fatal("empty root must fall back to a usable directory")
	}
}
