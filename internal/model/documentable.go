// Package model defines the documentation tree produced by translation and
// consumed by every later pipeline stage.
//
// A tree is made of Documentable nodes. Structure (identity, kind, children)
// is platform-invariant; everything that may differ between platforms lives
// in per-platform Facts keyed by platform.PlatformData. Stages never mutate
// a tree they received: transforms rebuild the parts they change and share
// the rest.
package model

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// Kind classifies a Documentable node.
type Kind string

// The closed set of node kinds. A module contains packages, packages contain
// classlikes and top-level callables, classlikes contain members.
const (
	KindModule    Kind = "module"
	KindPackage   Kind = "package"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindObject    Kind = "object"
	KindEnum      Kind = "enum"
	KindEnumEntry Kind = "enumEntry"
	KindFunction  Kind = "function"
	KindProperty  Kind = "property"
	KindTypeAlias Kind = "typealias"
)

// ParseKind validates a front-end kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindModule, KindPackage, KindClass, KindInterface, KindObject,
		KindEnum, KindEnumEntry, KindFunction, KindProperty, KindTypeAlias:
		return k, nil
	default:
		return "", fmt.Errorf("unknown documentable kind %q", s)
	}
}

// IsClasslike reports whether k is a type declaration that owns members.
func (k Kind) IsClasslike() bool {
	switch k {
	case KindClass, KindInterface, KindObject, KindEnum:
		return true
	default:
		return false
	}
}

// IsCallable reports whether k can be overloaded and therefore needs a
// signature discriminator in its identity.
func (k Kind) IsCallable() bool {
	return k == KindFunction
}

// Documentable is one node of the documentation tree.
type Documentable struct {
	Identity Identity
	Kind     Kind
	Name     string

	// Facts holds the platform-variant part of the node, keyed by the
	// platform that contributed it. After merging, a key per platform the
	// declaration exists on.
	Facts map[platform.PlatformData]Facts

	Children []*Documentable

	parent *Documentable
}

// New returns a childless node with no facts.
func New(kind Kind, name string, id Identity) *Documentable {
	return &Documentable{
		Identity: id,
		Kind:     kind,
		Name:     name,
		Facts:    make(map[platform.PlatformData]Facts),
	}
}

// NewModule returns a module root named name.
func NewModule(name string) *Documentable {
	return New(KindModule, name, RootIdentity(name))
}

// Parent returns the enclosing node, or nil for a root. The backref is
// maintained by AddChild and Clone; it never implies ownership.
func (d *Documentable) Parent() *Documentable {
	return d.parent
}

// AddChild appends c and sets its parent backref. Callers are responsible
// for keeping sibling identities unique.
func (d *Documentable) AddChild(c *Documentable) *Documentable {
	c.parent = d
	d.Children = append(d.Children, c)
	return d
}

// SetFacts records the platform-variant facts contributed by p.
func (d *Documentable) SetFacts(p platform.PlatformData, f Facts) {
	if d.Facts == nil {
		d.Facts = make(map[platform.PlatformData]Facts)
	}
	d.Facts[p] = f
}

// FactsFor returns the facts contributed by p.
func (d *Documentable) FactsFor(p platform.PlatformData) (Facts, bool) {
	f, ok := d.Facts[p]
	return f, ok
}

// Platforms returns the platforms that contributed facts to this node, in
// deterministic order.
func (d *Documentable) Platforms() []platform.PlatformData {
	out := make([]platform.PlatformData, 0, len(d.Facts))
	for p := range d.Facts {
		out = append(out, p)
	}
	platform.Sort(out)
	return out
}

// Child returns the direct child with the given identity.
func (d *Documentable) Child(id Identity) *Documentable {
	for _, c := range d.Children {
		if c.Identity == id {
			return c
		}
	}
	return nil
}

// ChildNamed returns the first direct child with the given name.
func (d *Documentable) ChildNamed(name string) *Documentable {
	for _, c := range d.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Packages returns the module's package children in name order. It is a
// convenience for stages that iterate packages; d should be a module root.
func (d *Documentable) Packages() []*Documentable {
	var out []*Documentable
	for _, c := range d.Children {
		if c.Kind == KindPackage {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Walk visits d and its descendants in depth-first pre-order. Returning
// false from fn skips the node's subtree.
func (d *Documentable) Walk(fn func(*Documentable) bool) {
	if !fn(d) {
		return
	}
	for _, c := range d.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at d.
func (d *Documentable) Count() int {
	n := 0
	d.Walk(func(*Documentable) bool { n++; return true })
	return n
}

// Clone returns a deep copy of the subtree rooted at d. The copy's root has
// no parent; backrefs inside the copy are rebuilt.
func (d *Documentable) Clone() *Documentable {
	out := &Documentable{
		Identity: d.Identity,
		Kind:     d.Kind,
		Name:     d.Name,
		Facts:    cloneFacts(d.Facts),
	}
	if len(d.Children) > 0 {
		out.Children = make([]*Documentable, len(d.Children))
		for i, c := range d.Children {
			cc := c.Clone()
			cc.parent = out
			out.Children[i] = cc
		}
	}
	return out
}

// Shallow returns a copy of d alone: same identity, kind, name and a cloned
// facts map, but no children and no parent. Transforms use it as the seed
// for a rebuilt node.
func (d *Documentable) Shallow() *Documentable {
	return &Documentable{
		Identity: d.Identity,
		Kind:     d.Kind,
		Name:     d.Name,
		Facts:    cloneFacts(d.Facts),
	}
}

// WithChildren attaches children to d, setting their parent backrefs, and
// returns d.
func (d *Documentable) WithChildren(children []*Documentable) *Documentable {
	for _, c := range children {
		c.parent = d
	}
	d.Children = children
	return d
}

func cloneFacts(in map[platform.PlatformData]Facts) map[platform.PlatformData]Facts {
	out := make(map[platform.PlatformData]Facts, len(in))
	for p, f := range in {
		out[p] = f.Clone()
	}
	return out
}

// Filter returns a copy of the tree keeping only children approved by fn.
// fn is called for every node below the root; returning nil drops the node
// together with its subtree, returning a replacement keeps it (the
// replacement's children are ignored and rebuilt from the original's). The
// root itself is always kept.
func Filter(root *Documentable, fn func(*Documentable) *Documentable) *Documentable {
	out := root.Shallow()
	return out.WithChildren(filterChildren(root.Children, fn))
}

func filterChildren(children []*Documentable, fn func(*Documentable) *Documentable) []*Documentable {
	var out []*Documentable
	for _, c := range children {
		repl := fn(c)
		if repl == nil {
			continue
		}
		kept := repl.Shallow()
		kept.WithChildren(filterChildren(c.Children, fn))
		out = append(out, kept)
	}
	return out
}
