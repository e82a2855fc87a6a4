package pages

import (
	"context"
	"encoding/json"
)

// searchRecord is one entry of the search index payload.
type searchRecord struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

type searchIndexInjector struct{}

// NewSearchIndexInjector returns the transformer that appends a
// renderer-specific page holding a JSON index of every content page.
func NewSearchIndexInjector() PageTransformer {
	return searchIndexInjector{}
}

func (searchIndexInjector) Name() string { return "search-index-injector" }

func (searchIndexInjector) Transform(_ context.Context, root *PageNode) (*PageNode, error) {
	records := make([]searchRecord, 0, root.Count())
	root.WalkPaths(func(n *PageNode, dir string) bool {
		if n.Kind.IsContent() {
			records = append(records, searchRecord{Name: n.Name, Kind: n.Kind, Path: dir})
		}
		return true
	})
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	out := root.Shallow()
	out.Children = make([]*PageNode, 0, len(root.Children)+1)
	out.Children = append(out.Children, root.Children...)
	out.Children = append(out.Children, NewRendererSpecific(SearchIndexPageName, payload))
	return out, nil
}
