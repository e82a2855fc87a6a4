// Package render defines the output side of the pipeline. A Renderer
// consumes the final page tree and performs all externally visible output;
// the pipeline treats it as opaque and never inspects its result.
package render

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/pages"
)

// Renderer writes the final page tree to its output form.
type Renderer interface {
	// Name identifies the renderer in logs and errors.
	Name() string

	Render(ctx context.Context, root *pages.PageNode) error
}
