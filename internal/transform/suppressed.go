package transform

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// suppressedFilter removes packages matched by a pass's `suppress` option.
// Suppression is per platform: a package suppressed for jvm but not js
// keeps its js view only, and drops entirely once every platform suppresses
// it.
type suppressedFilter struct{}

// NewSuppressedFilter returns the filter applying per-package suppress
// options.
func NewSuppressedFilter() DocumentableTransformer { return suppressedFilter{} }

func (suppressedFilter) Name() string { return "suppressed-declarations-filter" }

func (suppressedFilter) Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error) {
	return factFilter(root, func(d *model.Documentable, p platform.PlatformData, _ model.Facts) bool {
		pkg := packageOf(d.Identity)
		if pkg == "" {
			return true
		}
		return !env.optionsFor(p, pkg).Suppress
	}), nil
}
