package translate

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docweaver/internal/analysis"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// SymbolTranslator renders an analysis context's symbol groups into the
// documentable tree: one package node per group, symbols nested below with
// their facts keyed under the context's platform.
type SymbolTranslator struct{}

func NewSymbolTranslator() *SymbolTranslator { return &SymbolTranslator{} }

func (t *SymbolTranslator) Name() string { return "default-symbol-translator" }

func (t *SymbolTranslator) Translate(ctx context.Context, pctx *analysis.PlatformContext, reporter diag.Reporter) (*model.Documentable, error) {
	if pctx.Analysis == nil {
		return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
			"analysis context missing").
			WithContext("platform", pctx.Platform.Name)
	}

	module := model.NewModule(pctx.Module)
	for _, group := range pctx.Analysis.Symbols() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkg := model.New(model.KindPackage, group.Package, module.Identity.Child(group.Package))
		pkg.SetFacts(pctx.Platform, model.Facts{})
		module.AddChild(pkg)

		for _, sym := range group.Symbols {
			if node, ok := t.symbol(pkg.Identity, sym, pctx.Platform, reporter); ok {
				pkg.AddChild(node)
			}
		}
	}
	return module, nil
}

// symbol converts one declaration and its members. Unknown kinds are
// reported and skipped; the rest of the tree still translates.
func (t *SymbolTranslator) symbol(parent model.Identity, sym analysis.Symbol, p platform.PlatformData, reporter diag.Reporter) (*model.Documentable, bool) {
	kind, err := model.ParseKind(sym.Kind)
	if err != nil {
		report(reporter, diag.SeverityWarning,
			fmt.Sprintf("skipping symbol %q: %v", sym.Name, err),
			symbolLocation(sym))
		return nil, false
	}

	id := parent.Child(sym.Name)
	if kind.IsCallable() && sym.Signature != "" {
		id = id.WithSignature(sym.Signature)
	}

	node := model.New(kind, sym.Name, id)
	node.SetFacts(p, symbolFacts(sym))
	for _, member := range sym.Members {
		if child, ok := t.symbol(id, member, p, reporter); ok {
			node.AddChild(child)
		}
	}
	return node, true
}

func symbolFacts(sym analysis.Symbol) model.Facts {
	f := model.Facts{
		Documentation: sym.Documentation,
		Signature:     sym.Signature,
		Visibility:    model.ParseVisibility(sym.Visibility),
	}
	if sym.Deprecation != nil {
		f.Deprecation = &model.Deprecation{
			Message:     sym.Deprecation.Message,
			ReplaceWith: sym.Deprecation.ReplaceWith,
		}
	}
	if sym.Location != nil {
		f.Location = &model.SourceLocation{
			File:   sym.Location.File,
			Line:   sym.Location.Line,
			Column: sym.Location.Column,
		}
	}
	for _, a := range sym.Annotations {
		f.Annotations = append(f.Annotations, model.Annotation{Name: a.Name, Params: a.Params})
	}
	return f
}

func symbolLocation(sym analysis.Symbol) *diag.Location {
	if sym.Location == nil {
		return nil
	}
	return &diag.Location{File: sym.Location.File, Line: sym.Location.Line, Column: sym.Location.Column}
}
