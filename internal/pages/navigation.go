package pages

import (
	"context"
	"encoding/json"
)

// Names of the payload pages injected by the default page transformers.
// Renderers recognize them by name and may emit or ignore them.
const (
	NavigationPageName  = "navigation"
	SearchIndexPageName = "search-index"
)

// navEntry is one node of the navigation payload.
type navEntry struct {
	Name     string     `json:"name"`
	Kind     Kind       `json:"kind"`
	Path     string     `json:"path"`
	Children []navEntry `json:"children,omitempty"`
}

type navigationInjector struct{}

// NewNavigationInjector returns the transformer that prepends a
// renderer-specific page carrying the navigation tree as JSON. Renderers
// that lay out a sidebar consume it; others skip it.
func NewNavigationInjector() PageTransformer {
	return navigationInjector{}
}

func (navigationInjector) Name() string { return "navigation-injector" }

func (navigationInjector) Transform(_ context.Context, root *PageNode) (*PageNode, error) {
	tree := navEntry{Name: root.Name, Kind: root.Kind, Path: "", Children: navChildren(root, "")}
	payload, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, err
	}
	out := root.Shallow()
	out.Children = make([]*PageNode, 0, len(root.Children)+1)
	out.Children = append(out.Children, NewRendererSpecific(NavigationPageName, payload))
	out.Children = append(out.Children, root.Children...)
	return out, nil
}

// navChildren lists the navigable descendants of p: every page except
// payload pages, with directories accumulated from slugs.
func navChildren(p *PageNode, dir string) []navEntry {
	var out []navEntry
	for _, c := range p.Children {
		if c.Kind == KindRendererSpecific {
			continue
		}
		path := ChildPath(dir, c.Slug)
		out = append(out, navEntry{Name: c.Name, Kind: c.Kind, Path: path, Children: navChildren(c, path)})
	}
	return out
}
