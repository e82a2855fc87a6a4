// Package markdown renders the page tree as a Markdown site: one directory
// per content page holding an index.md, renderer-specific payloads written
// as sibling JSON files. It is the reference renderer; styled output is a
// renderer plugin's job, not the pipeline's.
package markdown

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	md "github.com/nao1215/markdown"

	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/pages"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// Renderer writes one file per content page under OutputDir.
type Renderer struct {
	outputDir string
}

func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

func (r *Renderer) Name() string { return "markdown-renderer" }

func (r *Renderer) Render(ctx context.Context, root *pages.PageNode) error {
	if root == nil {
		return errors.New(errors.CategoryRender, errors.SeverityFatal, "no page tree to render")
	}
	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			"cannot create output directory").
			WithContext("path", r.outputDir)
	}

	rendered := 0
	var failure error
	root.WalkPaths(func(n *pages.PageNode, dir string) bool {
		if err := ctx.Err(); err != nil {
			failure = err
			return false
		}
		wrote, err := r.renderPage(n, dir)
		if err != nil {
			failure = err
			return false
		}
		if wrote {
			rendered++
		}
		return true
	})
	if failure != nil {
		return failure
	}

	slog.Debug("Rendered markdown site",
		logfields.Path(r.outputDir),
		logfields.Count(rendered))
	return nil
}

// renderPage writes one page. Group pages own a path segment but no file.
func (r *Renderer) renderPage(n *pages.PageNode, dir string) (bool, error) {
	switch {
	case n.Kind == pages.KindRendererSpecific:
		path := filepath.Join(r.outputDir, dir+".json")
		if err := r.writeFile(path, n.Payload); err != nil {
			return false, err
		}
		return true, nil
	case n.Kind.IsContent():
		path := filepath.Join(r.outputDir, filepath.FromSlash(dir), "index.md")
		if err := r.writePage(path, n); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

func (r *Renderer) writePage(path string, n *pages.PageNode) error {
	var b strings.Builder
	doc := md.NewMarkdown(&b)
	writeBlocks(doc, n.Content)
	if err := doc.Build(); err != nil {
		return errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			"cannot build page markdown").
			WithContext("page", n.Name)
	}
	return r.writeFile(path, []byte(b.String()))
}

func (r *Renderer) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			"cannot create page directory").
			WithContext("path", filepath.Dir(path))
	}
	// #nosec G306 -- rendered documentation is public content
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryRender, errors.SeverityFatal,
			"cannot write page").
			WithContext("path", path)
	}
	return nil
}

// writeBlocks emits the block sequence. Runs of blocks restricted to the
// same platforms get one marker line, so platform-variant views stay
// readable without tab support.
func writeBlocks(doc *md.Markdown, blocks []pages.ContentBlock) {
	current := ""
	for _, b := range blocks {
		if key := platformsKey(b.Platforms); key != current {
			current = key
			if key != "" {
				doc.PlainText("**Platforms:** " + key)
				doc.PlainText("")
			}
		}
		writeBlock(doc, b)
		doc.PlainText("")
	}
}

func writeBlock(doc *md.Markdown, b pages.ContentBlock) {
	switch b.Kind {
	case pages.BlockHeading:
		writeHeading(doc, b)
	case pages.BlockCode:
		doc.CodeBlocks(md.SyntaxHighlight(b.Language), b.Text)
	case pages.BlockList:
		if b.Ordered {
			doc.OrderedList(b.Items...)
		} else {
			doc.BulletList(b.Items...)
		}
	case pages.BlockLink:
		doc.PlainText(md.Link(b.Text, b.Href))
	case pages.BlockTable:
		doc.Table(md.TableSet{Header: b.Columns, Rows: b.Rows})
	default:
		doc.PlainText(b.Text)
	}
}

func writeHeading(doc *md.Markdown, b pages.ContentBlock) {
	switch b.Level {
	case 1:
		doc.H1(b.Text)
	case 2:
		doc.H2(b.Text)
	case 3:
		doc.H3(b.Text)
	case 4:
		doc.H4(b.Text)
	case 5:
		doc.H5(b.Text)
	default:
		doc.H6(b.Text)
	}
}

func platformsKey(ps []platform.PlatformData) string {
	if len(ps) == 0 {
		return ""
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
