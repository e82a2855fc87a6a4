// Package merge combines the per-platform module trees produced by
// translation into the single documentation model every later stage works
// on. Nodes pair up by identity: a declaration present on several platforms
// becomes one node whose fact map carries one entry per platform.
package merge

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
)

// Merger is the documentable merger extension contract.
type Merger interface {
	// Name identifies the merger in logs.
	Name() string

	// Merge folds the ordered module sequence into one tree. Input trees
	// are never mutated; the result is fully detached.
	Merge(ctx context.Context, modules []*model.Documentable) (*model.Documentable, error)
}

// DefaultMerger merges by identity with first-wins tie-breaks:
//
//   - facts union per platform key; when the same platform contributed a
//     fact twice (symbol and file translator), the first non-empty field
//     value wins, in input order
//   - child order is first occurrence across the input sequence
//   - when inputs disagree on a node's kind or name, the first occurrence
//     wins
//
// Conflicting documentation for the same declaration on different platforms
// is deliberately retained: one fact entry per platform, never reconciled.
type DefaultMerger struct{}

func NewDefaultMerger() *DefaultMerger { return &DefaultMerger{} }

func (m *DefaultMerger) Name() string { return "default-documentable-merger" }

func (m *DefaultMerger) Merge(ctx context.Context, modules []*model.Documentable) (*model.Documentable, error) {
	if len(modules) == 0 {
		return nil, errors.Configuration("no modules to merge: every pass must produce at least one tree")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mergeNodes(modules), nil
}

// mergeNodes combines nodes that share one identity. len(nodes) >= 1.
func mergeNodes(nodes []*model.Documentable) *model.Documentable {
	first := nodes[0]
	merged := model.New(first.Kind, first.Name, first.Identity)

	for _, n := range nodes {
		for _, p := range n.Platforms() {
			facts, _ := n.FactsFor(p)
			if existing, ok := merged.FactsFor(p); ok {
				merged.SetFacts(p, model.UnionFacts(existing, facts))
			} else {
				merged.SetFacts(p, facts.Clone())
			}
		}
	}

	// Group children by identity, keeping first-occurrence order across
	// the whole input sequence.
	var order []model.Identity
	groups := make(map[model.Identity][]*model.Documentable)
	for _, n := range nodes {
		for _, c := range n.Children {
			if _, seen := groups[c.Identity]; !seen {
				order = append(order, c.Identity)
			}
			groups[c.Identity] = append(groups[c.Identity], c)
		}
	}
	for _, id := range order {
		merged.AddChild(mergeNodes(groups[id]))
	}
	return merged
}
