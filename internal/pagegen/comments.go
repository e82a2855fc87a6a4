package pagegen

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docweaver/internal/pages"
)

// docBlocks converts documentation markdown into content blocks. Headings,
// fenced code and flat lists map onto their block kinds; every other
// top-level construct keeps its raw markdown as a text block, so downstream
// rendering loses nothing it cannot represent. Heading levels shift by
// shift so in-documentation headings nest below the enclosing section.
func docBlocks(source string, shift int) []pages.ContentBlock {
	src := []byte(source)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []pages.ContentBlock
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			out = append(out, pages.Heading(headingLevel(node.Level+shift), inlineText(node, src)))
		case *gmast.FencedCodeBlock:
			lang := ""
			if l := node.Language(src); l != nil {
				lang = string(l)
			}
			out = append(out, pages.Code(lang, codeText(node, src)))
		case *gmast.CodeBlock:
			out = append(out, pages.Code("", codeText(node, src)))
		case *gmast.List:
			out = append(out, listBlock(node, src))
		case *gmast.ThematicBreak:
			out = append(out, pages.Text("---"))
		case *gmast.Blockquote:
			out = append(out, pages.Text(requote(rawSpan(node, src))))
		default:
			if raw := rawSpan(n, src); raw != "" {
				out = append(out, pages.Text(raw))
			}
		}
	}
	return out
}

func listBlock(list *gmast.List, source []byte) pages.ContentBlock {
	var items []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		// Nested structure flattens into the item's line.
		items = append(items, strings.Join(strings.Fields(rawSpan(item, source)), " "))
	}
	if list.IsOrdered() {
		return pages.OrderedList(items...)
	}
	return pages.List(items...)
}

// inlineText collects the plain text of a heading's inline children.
func inlineText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if txt, ok := c.(*gmast.Text); ok {
			sb.Write(txt.Segment.Value(source))
		}
	}
	return sb.String()
}

// codeText joins a code block's lines, preserving internal layout.
func codeText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(source[seg.Start:seg.Stop])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// rawSpan slices the source bytes a block node covers, including every
// nested leaf line.
func rawSpan(n gmast.Node, source []byte) string {
	start, stop := -1, -1
	var visit func(gmast.Node)
	visit = func(node gmast.Node) {
		if node.Type() == gmast.TypeBlock {
			if lines := node.Lines(); lines != nil && lines.Len() > 0 {
				if s := lines.At(0).Start; start == -1 || s < start {
					start = s
				}
				if e := lines.At(lines.Len() - 1).Stop; e > stop {
					stop = e
				}
			}
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c)
		}
	}
	visit(n)
	if start == -1 || stop <= start {
		return ""
	}
	return strings.TrimSpace(string(source[start:stop]))
}

// requote restores the quote marker goldmark strips from blockquote lines.
func requote(body string) string {
	if body == "" {
		return ""
	}
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace("> " + l)
	}
	return strings.Join(lines, "\n")
}
