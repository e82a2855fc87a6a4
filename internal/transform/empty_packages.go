package transform

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/model"
)

// emptyPackagesFilter drops packages whose declarations were all filtered
// away. Runs last in the default chain so it sees the other filters'
// results; `skipEmptyPackages: false` disables it.
type emptyPackagesFilter struct{}

// NewEmptyPackagesFilter returns the filter dropping childless packages.
func NewEmptyPackagesFilter() DocumentableTransformer { return emptyPackagesFilter{} }

func (emptyPackagesFilter) Name() string { return "empty-packages-filter" }

func (emptyPackagesFilter) Transform(ctx context.Context, env *Environment, root *model.Documentable) (*model.Documentable, error) {
	if env != nil && env.Config != nil && !env.Config.SkipEmpty() {
		return root, nil
	}
	return model.Filter(root, func(d *model.Documentable) *model.Documentable {
		if d.Kind == model.KindPackage && len(d.Children) == 0 {
			return nil
		}
		return d
	}), nil
}
