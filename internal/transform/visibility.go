package transform

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// visibilityFilter keeps only declarations whose visibility the package
// policy includes (public when nothing is configured). Package and module
// nodes are not declarations and pass through; a declaration loses each
// platform view it is not visible on.
type visibilityFilter struct{}

// NewVisibilityFilter returns the filter applying per-package visibility
// options.
func NewVisibilityFilter() DocumentableTransformer { return visibilityFilter{} }

func (visibilityFilter) Name() string { return "visibility-filter" }

func (visibilityFilter) Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error) {
	return factFilter(root, func(d *model.Documentable, p platform.PlatformData, f model.Facts) bool {
		if d.Kind == model.KindModule || d.Kind == model.KindPackage {
			return true
		}
		pkg := packageOf(d.Identity)
		if pkg == "" {
			return true
		}
		opts := env.optionsFor(p, pkg)
		return opts.IncludesVisibility(string(f.Visibility))
	}), nil
}
