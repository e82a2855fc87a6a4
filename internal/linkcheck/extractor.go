package linkcheck

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docweaver/internal/model"
)

// Link is one link found in documentation markdown.
type Link struct {
	URL      string // destination as written, including any fragment
	Text     string // link text, or alt text for images
	Source   string // identity of the documented declaration
	Platform string // platform whose documentation carried the link
	Line     int    // 1-based line within the documentation block, 0 if unknown
	Image    bool
}

// CollectLinks walks the documentation tree and extracts every link from
// every node's documentation. Documentation shared across platforms yields
// one link per destination and source; the first platform in deterministic
// order wins the stamp.
func CollectLinks(root *model.Documentable) []*Link {
	var out []*Link
	seen := make(map[[2]string]bool)
	root.Walk(func(d *model.Documentable) bool {
		for _, p := range d.Platforms() {
			facts := d.Facts[p]
			if facts.Documentation == "" {
				continue
			}
			for _, l := range ExtractLinks(facts.Documentation) {
				key := [2]string{l.URL, d.Identity.String()}
				if seen[key] {
					continue
				}
				seen[key] = true
				l.Source = d.Identity.String()
				l.Platform = p.Name
				out = append(out, l)
			}
		}
		return true
	})
	return out
}

// ExtractLinks parses markdown and returns every link, auto-link and image
// destination in document order. No filtering happens here; ShouldCheck
// decides what is worth verifying.
func ExtractLinks(source string) []*Link {
	src := []byte(source)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []*Link
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			out = append(out, &Link{
				URL:  string(node.Destination),
				Text: nodeText(node, src),
				Line: lineOf(node, src),
			})
		case *gmast.AutoLink:
			out = append(out, &Link{
				URL:  string(node.URL(src)),
				Text: string(node.Label(src)),
			})
		case *gmast.Image:
			out = append(out, &Link{
				URL:   string(node.Destination),
				Text:  nodeText(node, src),
				Line:  lineOf(node, src),
				Image: true,
			})
		}
		return gmast.WalkContinue, nil
	})
	return out
}

// nodeText collects the plain text of a node's inline children.
func nodeText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if txt, ok := c.(*gmast.Text); ok {
			sb.Write(txt.Segment.Value(source))
		} else {
			sb.WriteString(nodeText(c, source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// lineOf locates a node's first text segment and counts lines up to it.
// Nodes without text segments report 0.
func lineOf(n gmast.Node, source []byte) int {
	start := -1
	var visit func(gmast.Node) bool
	visit = func(node gmast.Node) bool {
		if txt, ok := node.(*gmast.Text); ok {
			start = txt.Segment.Start
			return true
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(n)
	if start < 0 || start > len(source) {
		return 0
	}
	return bytes.Count(source[:start], []byte("\n")) + 1
}

// ShouldCheck reports whether a destination is an external link worth
// verifying. Relative destinations point inside the generated site and are
// covered by page-tree construction, not by HTTP checking.
func ShouldCheck(rawURL string) bool {
	if rawURL == "" || strings.HasPrefix(rawURL, "#") {
		return false
	}
	if strings.HasPrefix(rawURL, "mailto:") ||
		strings.HasPrefix(rawURL, "tel:") ||
		strings.HasPrefix(rawURL, "javascript:") ||
		strings.HasPrefix(rawURL, "data:") {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CheckableLinks filters to the links ShouldCheck approves.
func CheckableLinks(links []*Link) []*Link {
	var out []*Link
	for _, l := range links {
		if ShouldCheck(l.URL) {
			out = append(out, l)
		}
	}
	return out
}
