package transform

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// deprecatedFilter removes deprecated declarations from packages whose
// policy sets `skipDeprecated`. Like suppression this is per platform: a
// declaration deprecated on jvm only loses its jvm view.
type deprecatedFilter struct{}

// NewDeprecatedFilter returns the filter applying per-package skipDeprecated
// options.
func NewDeprecatedFilter() DocumentableTransformer { return deprecatedFilter{} }

func (deprecatedFilter) Name() string { return "deprecated-declarations-filter" }

func (deprecatedFilter) Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error) {
	return factFilter(root, func(d *model.Documentable, p platform.PlatformData, f model.Facts) bool {
		if d.Kind == model.KindModule || d.Kind == model.KindPackage {
			return true
		}
		pkg := packageOf(d.Identity)
		if pkg == "" || f.Deprecation == nil {
			return true
		}
		return !env.optionsFor(p, pkg).SkipDeprecated
	}), nil
}
