// Package pagegen builds the page tree from the merged documentation model.
//
// The default policy gives the module one page, every package one page and
// every top-level classlike one page; members render as content sections on
// their owner's page. Platform-variant facts become platform-tagged content
// blocks, so one logical declaration keeps a single location with multiple
// platform views.
package pagegen

import (
	"context"
	"sort"

	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/pages"
)

// Translator turns the merged model into a page tree.
type Translator interface {
	// Name identifies the translator in logs and errors.
	Name() string

	Translate(ctx context.Context, root *model.Documentable) (*pages.PageNode, error)
}

// ExternalResolver resolves dot-qualified references into externally hosted
// documentation. *extdocs.Resolver implements it.
type ExternalResolver interface {
	ResolveReference(ref string) (url string, ok bool)
}

// Options configure the default translator.
type Options struct {
	// GenerateIndexPages adds listing tables: packages on the module
	// page, types on package pages.
	GenerateIndexPages bool

	// External resolves references that do not name anything in the
	// documented module. Nil disables external resolution.
	External ExternalResolver
}

// DefaultTranslator is the stock page translation policy. Same model in,
// same page tree out.
type DefaultTranslator struct {
	opts Options
}

func NewDefaultTranslator(opts Options) *DefaultTranslator {
	return &DefaultTranslator{opts: opts}
}

func (t *DefaultTranslator) Name() string { return "default-page-translator" }

func (t *DefaultTranslator) Translate(ctx context.Context, root *model.Documentable) (*pages.PageNode, error) {
	if root == nil {
		return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
			"page translation needs a model tree")
	}
	g := &generator{opts: t.opts, refs: buildRefIndex(root)}
	return g.module(ctx, root)
}

type generator struct {
	opts Options
	refs map[string]string
}

func (g *generator) module(ctx context.Context, root *model.Documentable) (*pages.PageNode, error) {
	page := pages.NewPage(pages.KindModule, root.Name)
	page.Source = root
	page.AddContent(pages.Heading(1, root.Name))
	g.documentation(page, root, 1)

	pkgs := root.Packages()
	if g.opts.GenerateIndexPages && len(pkgs) > 0 {
		rows := make([][]string, 0, len(pkgs))
		for _, pkg := range pkgs {
			rows = append(rows, []string{
				markdownLink(pkg.Name, g.refs[pkg.Name]),
				tableCell(g.resolveDocLinks(summary(pkg))),
			})
		}
		page.AddContent(pages.Heading(2, "Packages"), pages.Table([]string{"Name", "Summary"}, rows))
	}

	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page.AddChild(g.pkg(pkg))
	}
	return page, nil
}

func (g *generator) pkg(pkg *model.Documentable) *pages.PageNode {
	page := pages.NewPage(pages.KindPackage, pkg.Name)
	page.Source = pkg
	page.AddContent(pages.Heading(1, pkg.Name))
	g.documentation(page, pkg, 1)

	classlikes := classlikeChildren(pkg)
	if g.opts.GenerateIndexPages && len(classlikes) > 0 {
		rows := make([][]string, 0, len(classlikes))
		for _, c := range classlikes {
			qualified := pkg.Name + "." + c.Name
			rows = append(rows, []string{
				markdownLink(c.Name, g.refs[qualified]),
				tableCell(g.resolveDocLinks(summary(c))),
			})
		}
		page.AddContent(pages.Heading(2, "Types"), pages.Table([]string{"Name", "Summary"}, rows))
	}

	// Top-level callables are the package's members.
	g.memberGroups(page, pkg, false, 2)

	for _, c := range classlikes {
		page.AddChild(g.classlike(c))
	}
	return page
}

func (g *generator) classlike(decl *model.Documentable) *pages.PageNode {
	page := pages.NewPage(pages.KindClasslike, decl.Name)
	page.Source = decl
	page.AddContent(pages.Heading(1, decl.Name))
	g.declaration(page, decl, 1)
	g.memberGroups(page, decl, true, 2)
	return page
}

// memberGroups renders d's members as sections: one heading per group, one
// subsection per member name, overloads listed inside their name's section.
// Nested classlikes become sections too when includeClasslikes is set; on
// package pages they are excluded because they get pages of their own.
func (g *generator) memberGroups(page *pages.PageNode, d *model.Documentable, includeClasslikes bool, level int) {
	for _, grp := range groupMembers(d, includeClasslikes) {
		page.AddContent(pages.Heading(headingLevel(level), grp.title))
		for start := 0; start < len(grp.members); {
			end := start
			for end < len(grp.members) && grp.members[end].Name == grp.members[start].Name {
				end++
			}
			g.memberSection(page, grp.members[start:end], level+1)
			start = end
		}
	}
}

// memberSection renders all overloads sharing one name under one heading.
func (g *generator) memberSection(page *pages.PageNode, overloads []*model.Documentable, level int) {
	page.AddContent(pages.Heading(headingLevel(level), overloads[0].Name))
	for _, d := range overloads {
		g.declaration(page, d, level)
		g.memberGroups(page, d, true, level+1)
	}
}

// declaration emits one declaration's platform views: signatures,
// annotations, deprecation notices and documentation.
func (g *generator) declaration(page *pages.PageNode, d *model.Documentable, level int) {
	for _, v := range factViews(d, func(f model.Facts) string { return f.Signature }) {
		page.AddContent(pages.Code("", v.value).OnPlatforms(v.platforms...))
	}
	for _, v := range factViews(d, annotationsText) {
		page.AddContent(pages.Text(v.value).OnPlatforms(v.platforms...))
	}
	for _, v := range factViews(d, deprecationText) {
		page.AddContent(pages.Text(v.value).OnPlatforms(v.platforms...))
	}
	g.documentation(page, d, level)
}

// documentation converts each distinct platform documentation into content
// blocks, tagged with the platforms sharing that text. Headings inside the
// markdown shift below the enclosing section's level.
func (g *generator) documentation(page *pages.PageNode, d *model.Documentable, level int) {
	for _, v := range factViews(d, func(f model.Facts) string { return f.Documentation }) {
		blocks := docBlocks(v.value, level)
		for i := range blocks {
			switch blocks[i].Kind {
			case pages.BlockText:
				blocks[i].Text = g.resolveDocLinks(blocks[i].Text)
			case pages.BlockList:
				for j := range blocks[i].Items {
					blocks[i].Items[j] = g.resolveDocLinks(blocks[i].Items[j])
				}
			}
			blocks[i].Platforms = v.platforms
		}
		page.AddContent(blocks...)
	}
}

// memberGroup is one presentation group of a declaration's members.
type memberGroup struct {
	title   string
	members []*model.Documentable

	// keepOrder preserves declaration order instead of sorting by name.
	// Enum entries need it: their order is their ordinal order.
	keepOrder bool
}

// groupMembers splits children into fixed-order presentation groups, each
// sorted by name with overload order preserved.
func groupMembers(d *model.Documentable, includeClasslikes bool) []memberGroup {
	groups := []memberGroup{
		{title: "Enum entries", keepOrder: true},
		{title: "Types"},
		{title: "Type aliases"},
		{title: "Functions"},
		{title: "Properties"},
	}
	for _, c := range d.Children {
		switch {
		case c.Kind == model.KindEnumEntry:
			groups[0].members = append(groups[0].members, c)
		case c.Kind.IsClasslike():
			if includeClasslikes {
				groups[1].members = append(groups[1].members, c)
			}
		case c.Kind == model.KindTypeAlias:
			groups[2].members = append(groups[2].members, c)
		case c.Kind == model.KindFunction:
			groups[3].members = append(groups[3].members, c)
		case c.Kind == model.KindProperty:
			groups[4].members = append(groups[4].members, c)
		}
	}
	out := groups[:0]
	for _, grp := range groups {
		if len(grp.members) == 0 {
			continue
		}
		if !grp.keepOrder {
			sort.SliceStable(grp.members, func(i, j int) bool {
				return grp.members[i].Name < grp.members[j].Name
			})
		}
		out = append(out, grp)
	}
	return out
}

func classlikeChildren(d *model.Documentable) []*model.Documentable {
	var out []*model.Documentable
	for _, c := range d.Children {
		if c.Kind.IsClasslike() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// headingLevel caps section nesting at markdown's deepest heading.
func headingLevel(level int) int {
	return min(level, 6)
}
