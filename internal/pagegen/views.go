package pagegen

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// factView is one distinct projection of a node's per-platform facts.
// Platforms is nil when every platform of the node shares the value, which
// marks the resulting block as unrestricted.
type factView struct {
	value     string
	platforms []platform.PlatformData
}

// factViews projects every platform's facts through project and groups
// platforms sharing a value. Distinct values keep first-seen order over the
// node's sorted platforms; empty projections are dropped.
func factViews(d *model.Documentable, project func(model.Facts) string) []factView {
	ps := d.Platforms()
	var order []string
	grouped := make(map[string][]platform.PlatformData)
	projected := 0
	for _, p := range ps {
		f, _ := d.FactsFor(p)
		v := project(f)
		if v == "" {
			continue
		}
		projected++
		if _, seen := grouped[v]; !seen {
			order = append(order, v)
		}
		grouped[v] = append(grouped[v], p)
	}

	out := make([]factView, 0, len(order))
	for _, v := range order {
		view := factView{value: v, platforms: grouped[v]}
		if len(order) == 1 && projected == len(ps) {
			view.platforms = nil
		}
		out = append(out, view)
	}
	return out
}

// deprecationText renders a deprecation fact as a markdown notice.
func deprecationText(f model.Facts) string {
	if f.Deprecation == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Deprecated.**")
	if f.Deprecation.Message != "" {
		b.WriteString(" " + f.Deprecation.Message)
	}
	if f.Deprecation.ReplaceWith != "" {
		b.WriteString(" Replace with `" + f.Deprecation.ReplaceWith + "`.")
	}
	return b.String()
}

// annotationsText renders the annotation list as one inline-code line.
func annotationsText(f model.Facts) string {
	if len(f.Annotations) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(f.Annotations))
	for _, a := range f.Annotations {
		rendered = append(rendered, "`"+annotationString(a)+"`")
	}
	return "Annotations: " + strings.Join(rendered, ", ")
}

func annotationString(a model.Annotation) string {
	if len(a.Params) == 0 {
		return "@" + a.Name
	}
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" = "+a.Params[k])
	}
	return "@" + a.Name + "(" + strings.Join(parts, ", ") + ")"
}

// summary returns the first prose line of the node's documentation: the
// first platform (in sorted order) with a non-empty text contributes it.
func summary(d *model.Documentable) string {
	for _, p := range d.Platforms() {
		f, _ := d.FactsFor(p)
		if line := firstProseLine(f.Documentation); line != "" {
			return line
		}
	}
	return ""
}

func firstProseLine(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// markdownLink renders a link cell; targets the index misses degrade to
// plain text.
func markdownLink(label, target string) string {
	if target == "" {
		return label
	}
	return "[" + label + "](" + target + ")"
}

// tableCell escapes the column separator so summaries cannot break table
// rows.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
