// Package transform runs the documentable transformer chain over the merged
// model. Transformers are copy-on-write: each returns the input tree
// unchanged or a rebuilt copy, and the chain folds left in registration
// order.
package transform

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// Environment is what transformers see of the run besides the model itself.
type Environment struct {
	Config   *config.Config
	Reporter diag.Reporter
}

// optionsFor resolves the package policy for one platform. Unknown platforms
// and absent configuration yield the permissive zero policy.
func (e *Environment) optionsFor(p platform.PlatformData, pkg string) config.PackageOptions {
	if e == nil || e.Config == nil {
		return config.PackageOptions{}
	}
	pass, ok := e.Config.PassByName(p.Name)
	if !ok {
		return config.PackageOptions{}
	}
	return pass.OptionsFor(pkg)
}

func (e *Environment) report(severity diag.Severity, message string, location *diag.Location) {
	if e != nil && e.Reporter != nil {
		e.Reporter.Report(severity, message, location)
	}
}

// DocumentableTransformer rewrites the model.
type DocumentableTransformer interface {
	// Name identifies the transformer in logs and errors.
	Name() string

	Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error)
}

// Apply folds the transformer chain over root in order. The first error
// aborts the fold with the failing transformer attributed.
func Apply(ctx context.Context, env *Environment, root *model.Documentable, chain []DocumentableTransformer) (*model.Documentable, error) {
	current := root
	for _, t := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := t.Transform(ctx, env, current)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryTransform, errors.SeverityFatal,
				"model transformer failed").
				WithContext("transformer", t.Name())
		}
		if next == nil {
			return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
				"model transformer returned no tree").
				WithContext("transformer", t.Name())
		}
		current = next
	}
	return current, nil
}

// packageOf returns the package segment of an identity path, or "" for the
// module root. Packages sit directly under the module, so the segment is
// the full package name.
func packageOf(id model.Identity) string {
	parts := strings.SplitN(id.Path, "/", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// factFilter rebuilds the tree dropping every per-platform fact entry that
// fails keep. A node stripped of its last fact entry is dropped with its
// subtree: a declaration hidden on every platform has no surviving view.
func factFilter(root *model.Documentable, keep func(d *model.Documentable, p platform.PlatformData, f model.Facts) bool) *model.Documentable {
	return model.Filter(root, func(d *model.Documentable) *model.Documentable {
		out := d.Shallow()
		changed := false
		for _, p := range d.Platforms() {
			f, _ := d.FactsFor(p)
			if !keep(d, p, f) {
				delete(out.Facts, p)
				changed = true
			}
		}
		if !changed {
			return d
		}
		if len(out.Facts) == 0 {
			return nil
		}
		return out
	})
}
