package pagegen

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/pages"
)

// refPattern matches bracketed dot-qualified references in documentation:
// [com.example.core.Deque]. Single unqualified words stay untouched, which
// keeps ordinary bracketed prose out of link resolution.
var refPattern = regexp.MustCompile(`\[([A-Za-z_]\w*(?:\.\w+)+)\]`)

// buildRefIndex maps every qualified name in the model to its site-rooted
// location. Packages and top-level classlikes map to their pages; members
// map to anchors on their owner's page.
func buildRefIndex(root *model.Documentable) map[string]string {
	refs := make(map[string]string)
	for _, pkg := range root.Packages() {
		pkgURL := "/" + pages.Slugify(pkg.Name) + "/"
		refs[pkg.Name] = pkgURL
		for _, decl := range pkg.Children {
			qualified := pkg.Name + "." + decl.Name
			if decl.Kind.IsClasslike() {
				declURL := pkgURL + pages.Slugify(decl.Name) + "/"
				if _, exists := refs[qualified]; !exists {
					refs[qualified] = declURL
				}
				indexMembers(refs, decl, qualified, declURL)
				continue
			}
			if _, exists := refs[qualified]; !exists {
				refs[qualified] = pkgURL + "#" + pages.Slugify(decl.Name)
			}
		}
	}
	return refs
}

// indexMembers maps owner's members (at any nesting depth) to anchors on
// ownerURL. Overloads share a name and therefore an anchor; the first one
// claims it.
func indexMembers(refs map[string]string, owner *model.Documentable, qualifiedOwner, ownerURL string) {
	for _, m := range owner.Children {
		qualified := qualifiedOwner + "." + m.Name
		if _, exists := refs[qualified]; !exists {
			refs[qualified] = ownerURL + "#" + pages.Slugify(m.Name)
		}
		indexMembers(refs, m, qualified, ownerURL)
	}
}

// resolveDocLinks rewrites bracketed qualified references into markdown
// links. Declarations of the documented module win over external
// documentation; references resolving to neither stay literal text.
func (g *generator) resolveDocLinks(doc string) string {
	matches := refPattern.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return doc
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		// Already markdown link syntax, an image or a reference
		// definition.
		if end < len(doc) && (doc[end] == '(' || doc[end] == '[' || doc[end] == ':') {
			continue
		}
		if start > 0 && (doc[start-1] == '!' || doc[start-1] == ']') {
			continue
		}
		ref := doc[m[2]:m[3]]
		target, ok := g.resolveReference(ref)
		if !ok {
			continue
		}
		b.WriteString(doc[last:start])
		b.WriteString("[" + ref + "](" + target + ")")
		last = end
	}
	if last == 0 {
		return doc
	}
	b.WriteString(doc[last:])
	return b.String()
}

func (g *generator) resolveReference(ref string) (string, bool) {
	if target, ok := g.refs[ref]; ok {
		return target, true
	}
	if g.opts.External != nil {
		return g.opts.External.ResolveReference(ref)
	}
	return "", false
}
