package transform

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/model"
)

// undocumentedReporter emits a warning for every public declaration without
// documentation on some platform, where the package policy asks for it. It
// runs after the filters so hidden declarations are never reported, and it
// rewrites nothing.
type undocumentedReporter struct{}

// NewUndocumentedReporter returns the reporter applying per-package
// reportUndocumented options.
func NewUndocumentedReporter() DocumentableTransformer { return undocumentedReporter{} }

func (undocumentedReporter) Name() string { return "undocumented-reporter" }

func (undocumentedReporter) Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error) {
	root.Walk(func(d *model.Documentable) bool {
		if d.Kind == model.KindModule || d.Kind == model.KindPackage {
			return true
		}
		pkg := packageOf(d.Identity)
		if pkg == "" {
			return true
		}
		for _, p := range d.Platforms() {
			if !env.optionsFor(p, pkg).ReportUndocumented {
				continue
			}
			f, _ := d.FactsFor(p)
			if f.Documentation != "" {
				continue
			}
			if f.Visibility != model.VisibilityPublic && f.Visibility != model.VisibilityUnspecified {
				continue
			}
			env.report(diag.SeverityWarning,
				fmt.Sprintf("undocumented public declaration %s on %s", d.Identity, p.Name),
				factLocation(f))
		}
		return true
	})
	return root, nil
}

func factLocation(f model.Facts) *diag.Location {
	if f.Location == nil {
		return nil
	}
	return &diag.Location{File: f.Location.File, Line: f.Location.Line, Column: f.Location.Column}
}
