package pages

import (
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// BlockKind classifies a content block.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockText    BlockKind = "text"
	BlockCode    BlockKind = "code"
	BlockList    BlockKind = "list"
	BlockLink    BlockKind = "link"
	BlockTable   BlockKind = "table"
)

// ContentBlock is one block of a page body. A single struct covers all block
// kinds; only the field group of the block's kind is meaningful. Platforms
// restricts the block to the named platforms, which drives platform-variant
// rendering; empty means the block applies everywhere.
type ContentBlock struct {
	Kind BlockKind

	// Level is the heading depth (1-based) of a heading block.
	Level int

	// Text holds the block body: heading text, paragraph markdown, code
	// source or link label.
	Text string

	// Language is the fence language of a code block.
	Language string

	// Href is the destination of a link block.
	Href string

	// Items are the entries of a list block.
	Items   []string
	Ordered bool

	// Columns and Rows form a table block.
	Columns []string
	Rows    [][]string

	Platforms []platform.PlatformData
}

// Heading returns a heading block of the given depth.
func Heading(level int, text string) ContentBlock {
	return ContentBlock{Kind: BlockHeading, Level: level, Text: text}
}

// Text returns a paragraph block. The text is markdown and rendered as-is.
func Text(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// Code returns a fenced code block.
func Code(language, source string) ContentBlock {
	return ContentBlock{Kind: BlockCode, Language: language, Text: source}
}

// List returns an unordered list block.
func List(items ...string) ContentBlock {
	return ContentBlock{Kind: BlockList, Items: items}
}

// OrderedList returns an ordered list block.
func OrderedList(items ...string) ContentBlock {
	return ContentBlock{Kind: BlockList, Items: items, Ordered: true}
}

// Link returns a link block.
func Link(label, href string) ContentBlock {
	return ContentBlock{Kind: BlockLink, Text: label, Href: href}
}

// Table returns a table block.
func Table(columns []string, rows [][]string) ContentBlock {
	return ContentBlock{Kind: BlockTable, Columns: columns, Rows: rows}
}

// OnPlatforms returns a copy of b restricted to the given platforms.
func (b ContentBlock) OnPlatforms(ps ...platform.PlatformData) ContentBlock {
	b.Platforms = ps
	return b
}

// AppliesTo reports whether b is visible on platform p. Blocks without a
// platform restriction apply everywhere.
func (b ContentBlock) AppliesTo(p platform.PlatformData) bool {
	if len(b.Platforms) == 0 {
		return true
	}
	for _, bp := range b.Platforms {
		if bp == p {
			return true
		}
	}
	return false
}
