package translate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docweaver/internal/analysis"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// IncludesTranslator folds a pass's standalone documentation files into a
// module tree. A level-one `# Module <name>` heading opens module
// documentation, `# Package <qualified.name>` opens one package's
// documentation, and everything up to the next level-one heading is that
// section's markdown body.
type IncludesTranslator struct{}

func NewIncludesTranslator() *IncludesTranslator { return &IncludesTranslator{} }

func (t *IncludesTranslator) Name() string { return "includes-file-translator" }

func (t *IncludesTranslator) Translate(ctx context.Context, pctx *analysis.PlatformContext, reporter diag.Reporter) (*model.Documentable, error) {
	if pctx.Analysis == nil {
		return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
			"analysis context missing").
			WithContext("platform", pctx.Platform.Name)
	}

	module := model.NewModule(pctx.Module)
	for _, src := range pctx.Analysis.SourceFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(src.Path)
		if err != nil {
			report(reporter, diag.SeverityError,
				"cannot read documentation file: "+err.Error(),
				&diag.Location{File: src.Path})
			continue
		}
		t.apply(module, pctx, splitSections(data), src.Path, reporter)
	}
	return module, nil
}

func (t *IncludesTranslator) apply(module *model.Documentable, pctx *analysis.PlatformContext, secs []section, path string, reporter diag.Reporter) {
	for _, sec := range secs {
		loc := &diag.Location{File: path, Line: sec.line}
		kind, name := splitHeading(sec.heading)

		switch kind {
		case "Module":
			if name != pctx.Module {
				report(reporter, diag.SeverityWarning,
					fmt.Sprintf("module documentation for %q does not belong to module %q", name, pctx.Module), loc)
				continue
			}
			setDocumentation(module, pctx.Platform, sec.body)
		case "Package":
			if name == "" {
				report(reporter, diag.SeverityWarning, "package heading carries no package name", loc)
				continue
			}
			pkg := module.ChildNamed(name)
			if pkg == nil {
				pkg = model.New(model.KindPackage, name, module.Identity.Child(name))
				module.AddChild(pkg)
			}
			setDocumentation(pkg, pctx.Platform, sec.body)
		default:
			report(reporter, diag.SeverityWarning,
				fmt.Sprintf("unrecognized documentation heading %q (expected \"Module <name>\" or \"Package <name>\")", sec.heading), loc)
		}
	}
}

// setDocumentation records body as platform documentation. When two files
// document the same target the first non-empty body wins.
func setDocumentation(node *model.Documentable, p platform.PlatformData, body string) {
	incoming := model.Facts{Documentation: body}
	if existing, ok := node.FactsFor(p); ok {
		node.SetFacts(p, model.UnionFacts(existing, incoming))
		return
	}
	node.SetFacts(p, incoming)
}

// splitHeading separates the section keyword from the target name:
// "Package com.example.core" -> ("Package", "com.example.core").
func splitHeading(s string) (string, string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// section is one level-one-heading span of a documentation file.
type section struct {
	heading string
	body    string
	line    int
}

// splitSections parses source and cuts it at level-one headings. Bodies are
// the raw markdown between headings, so downstream consumers keep the
// original formatting.
func splitSections(source []byte) []section {
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	type mark struct {
		text string
		seg  text.Segment
		line int
	}
	var marks []mark
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level != 1 || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		marks = append(marks, mark{
			text: headingText(h, source),
			seg:  seg,
			line: 1 + bytes.Count(source[:seg.Start], []byte{'\n'}),
		})
	}

	secs := make([]section, len(marks))
	for i, m := range marks {
		bodyStart := nextLineStart(source, m.seg.Stop)
		bodyEnd := len(source)
		if i+1 < len(marks) {
			bodyEnd = lineStart(source, marks[i+1].seg.Start)
		}
		secs[i] = section{
			heading: m.text,
			body:    strings.TrimSpace(string(source[bodyStart:bodyEnd])),
			line:    m.line,
		}
	}
	return secs
}

func headingText(h *gmast.Heading, source []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if txt, ok := c.(*gmast.Text); ok {
			sb.Write(txt.Segment.Value(source))
		}
	}
	return sb.String()
}

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(source []byte, off int) int {
	return bytes.LastIndexByte(source[:off], '\n') + 1
}

// nextLineStart returns the offset just past the line containing off.
func nextLineStart(source []byte, off int) int {
	if i := bytes.IndexByte(source[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(source)
}

func report(r diag.Reporter, severity diag.Severity, message string, location *diag.Location) {
	if r != nil {
		r.Report(severity, message, location)
	}
}
