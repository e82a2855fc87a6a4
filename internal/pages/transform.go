package pages

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// PageTransformer reshapes the page tree between translation and rendering.
// Like model transformers, implementations return the input unchanged or a
// rebuilt copy and never mutate what they received.
type PageTransformer interface {
	// Name identifies the transformer in logs and errors.
	Name() string

	Transform(ctx context.Context, root *PageNode) (*PageNode, error)
}

// Apply folds the page transformer chain over root in order. The first
// error aborts the fold with the failing transformer attributed.
func Apply(ctx context.Context, root *PageNode, chain []PageTransformer) (*PageNode, error) {
	current := root
	for _, t := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := t.Transform(ctx, current)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryPages, errors.SeverityFatal,
				"page transformer failed").
				WithContext("transformer", t.Name())
		}
		if next == nil {
			return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
				"page transformer returned no tree").
				WithContext("transformer", t.Name())
		}
		current = next
	}
	return current, nil
}
