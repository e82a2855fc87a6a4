// Package snapshot implements the default analysis front end. It does no
// parsing of its own: it loads pre-analyzed symbol snapshots, JSON files an
// external analyzer dumped under the pass's source roots, one file per
// analyzed unit.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docweaver/internal/analysis"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Kind is the front-end kind passes select with `frontend: snapshot`.
const Kind = "snapshot"

// snapshotFile is the serialized form of one analyzed unit.
type snapshotFile struct {
	Module   string                 `json:"module,omitempty"`
	Packages []analysis.SymbolGroup `json:"packages"`
}

// FrontEnd loads symbol snapshots.
type FrontEnd struct{}

func New() *FrontEnd { return &FrontEnd{} }

func (f *FrontEnd) Kind() string { return Kind }

// CreateContext discovers and loads every .json snapshot under the setup's
// source roots. A missing root fails the setup; a malformed snapshot file is
// reported as an error diagnostic and skipped, so one bad dump does not
// abort the run.
func (f *FrontEnd) CreateContext(ctx context.Context, setup analysis.Setup) (analysis.Context, error) {
	files, err := discover(setup.SourceRoots)
	if err != nil {
		return nil, errors.AnalysisSetupError(setup.Platform.Name, err)
	}

	loaded := &Context{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := load(path)
		if err != nil {
			if setup.Reporter != nil {
				setup.Reporter.Report(diag.SeverityError,
					"malformed symbol snapshot: "+err.Error(),
					&diag.Location{File: path})
			}
			continue
		}
		for _, group := range snap.Packages {
			loaded.addGroup(group)
		}
	}

	for _, include := range setup.Includes {
		loaded.sources = append(loaded.sources, analysis.SourceFile{Path: include})
	}
	return loaded, nil
}

// discover collects snapshot files under each root in lexical order. Roots
// may be single files or directories.
func discover(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func load(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Context is the loaded snapshot set for one platform.
type Context struct {
	groups  []analysis.SymbolGroup
	sources []analysis.SourceFile
}

func (c *Context) FrontEnd() string { return Kind }

func (c *Context) Symbols() []analysis.SymbolGroup { return c.groups }

func (c *Context) SourceFiles() []analysis.SourceFile { return c.sources }

// addGroup merges a loaded group into the context. Symbols for a package
// already seen append to the existing group, keeping one group per package
// in first-seen order.
func (c *Context) addGroup(group analysis.SymbolGroup) {
	for i := range c.groups {
		if c.groups[i].Package == group.Package {
			c.groups[i].Symbols = append(c.groups[i].Symbols, group.Symbols...)
			return
		}
	}
	c.groups = append(c.groups, group)
}
