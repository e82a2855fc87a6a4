// Package pages holds the page tree: the presentation-side counterpart of
// the documentation model. The page translator turns the merged model into a
// PageNode tree, the page transformer chain reshapes it, and the renderer
// consumes it as-is.
package pages

import (
	"git.home.luguber.info/inful/docweaver/internal/model"
)

// Kind classifies a page.
type Kind string

const (
	// Content pages, each derived from the documentation model.
	KindModule    Kind = "module"
	KindPackage   Kind = "package"
	KindClasslike Kind = "classlike"
	KindMember    Kind = "member"

	// KindModuleList is the root page of a multi-module site, listing the
	// module pages below it.
	KindModuleList Kind = "moduleList"

	// KindGroup organizes related pages under one path segment without
	// content of its own.
	KindGroup Kind = "group"

	// KindRendererSpecific carries an opaque payload (navigation tree,
	// search index) addressed to the renderer by page name. Renderers
	// that do not recognize the name skip the page.
	KindRendererSpecific Kind = "rendererSpecific"
)

// IsContent reports whether k is a documentation page rendered from content
// blocks.
func (k Kind) IsContent() bool {
	switch k {
	case KindModule, KindPackage, KindClasslike, KindMember, KindModuleList:
		return true
	default:
		return false
	}
}

// PageNode is one page of the generated documentation.
//
// Pages form a tree whose shape decides output paths: the root page lives at
// the output root, every other page in a directory named by its slug under
// its parent's directory. Transformers treat pages as immutable and rebuild
// the parts they change.
type PageNode struct {
	Kind Kind

	// Name is the display title. Slug is the URL- and file-safe form used
	// for the page's path segment.
	Name string
	Slug string

	// Source is the model node the page documents; nil for structural and
	// renderer-specific pages.
	Source *model.Documentable

	// Content is the ordered block sequence of the page body.
	Content []ContentBlock

	// Payload carries renderer-specific bytes; meaningful only on
	// KindRendererSpecific pages, which are addressed by Name.
	Payload []byte

	Children []*PageNode
}

// NewPage returns a childless page whose slug is derived from name.
func NewPage(kind Kind, name string) *PageNode {
	return &PageNode{Kind: kind, Name: name, Slug: Slugify(name)}
}

// NewRendererSpecific returns a payload page addressed to the renderer by
// name.
func NewRendererSpecific(name string, payload []byte) *PageNode {
	p := NewPage(KindRendererSpecific, name)
	p.Payload = payload
	return p
}

// AddChild appends c and returns p for chaining.
func (p *PageNode) AddChild(c *PageNode) *PageNode {
	p.Children = append(p.Children, c)
	return p
}

// AddContent appends blocks to the page body and returns p.
func (p *PageNode) AddContent(blocks ...ContentBlock) *PageNode {
	p.Content = append(p.Content, blocks...)
	return p
}

// Shallow returns a copy of p without children. Content and payload are
// shared with the original.
func (p *PageNode) Shallow() *PageNode {
	out := *p
	out.Children = nil
	return &out
}

// Walk visits p and its descendants in depth-first pre-order. Returning
// false from fn skips the node's subtree.
func (p *PageNode) Walk(fn func(*PageNode) bool) {
	if !fn(p) {
		return
	}
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

// WalkPaths visits like Walk while accumulating each page's directory: the
// root lives at "", every other page at its parent's directory plus its own
// slug.
func (p *PageNode) WalkPaths(fn func(n *PageNode, dir string) bool) {
	p.walkPaths("", fn)
}

func (p *PageNode) walkPaths(dir string, fn func(*PageNode, string) bool) {
	if !fn(p, dir) {
		return
	}
	for _, c := range p.Children {
		c.walkPaths(ChildPath(dir, c.Slug), fn)
	}
}

// ChildPath joins a parent directory and a slug with "/". The root directory
// is the empty string.
func ChildPath(dir, slug string) string {
	if dir == "" {
		return slug
	}
	return dir + "/" + slug
}

// Count returns the number of pages in the subtree rooted at p.
func (p *PageNode) Count() int {
	n := 0
	p.Walk(func(*PageNode) bool { n++; return true })
	return n
}

// ContentPages returns the content pages of the subtree in visit order.
func (p *PageNode) ContentPages() []*PageNode {
	var out []*PageNode
	p.Walk(func(n *PageNode) bool {
		if n.Kind.IsContent() {
			out = append(out, n)
		}
		return true
	})
	return out
}
