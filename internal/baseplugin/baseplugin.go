// Package baseplugin ships the default implementation of every extension
// point the pipeline resolves. Installing it alone gives a complete markdown
// documentation build; site plugins add to it or replace individual pieces
// by contributing to the same points.
package baseplugin

import (
	"git.home.luguber.info/inful/docweaver/internal/analysis/snapshot"
	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/merge"
	"git.home.luguber.info/inful/docweaver/internal/pagegen"
	"git.home.luguber.info/inful/docweaver/internal/pages"
	"git.home.luguber.info/inful/docweaver/internal/plugin"
	mdrender "git.home.luguber.info/inful/docweaver/internal/render/markdown"
	"git.home.luguber.info/inful/docweaver/internal/transform"
	"git.home.luguber.info/inful/docweaver/internal/translate"
	"git.home.luguber.info/inful/docweaver/internal/version"
)

// Name is the base plugin's registered name. Other plugins order themselves
// relative to it via the Ordered constraints.
const Name = "docweaver.base"

// Plugin contributes the stock translators, merger, transformer chains and
// the markdown renderer.
type Plugin struct {
	cfg      *config.Config
	external pagegen.ExternalResolver
}

// New creates the base plugin for one configuration. external may be nil;
// references outside the documented module then stay plain text.
func New(cfg *config.Config, external pagegen.ExternalResolver) *Plugin {
	return &Plugin{cfg: cfg, external: external}
}

func (p *Plugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        Name,
		Version:     version.Version,
		Description: "Default translators, merger, transform chains and markdown renderer",
	}
}

// Contribute registers every default. The model transformer order is part of
// the contract: filters narrow the tree before the undocumented reporter
// counts what is left, and empty packages are dropped last.
func (p *Plugin) Contribute(reg *plugin.Registry) error {
	if p.cfg == nil {
		return errors.Configuration("base plugin requires a configuration")
	}

	contributions := []struct {
		point plugin.Point
		impl  any
	}{
		{plugin.PointSymbolTranslator(snapshot.Kind), translate.NewSymbolTranslator()},
		{plugin.PointFileTranslator, translate.NewIncludesTranslator()},
		{plugin.PointDocumentableMerger, merge.NewDefaultMerger()},
		{plugin.PointDocumentableTransformer, transform.NewSuppressedFilter()},
		{plugin.PointDocumentableTransformer, transform.NewVisibilityFilter()},
		{plugin.PointDocumentableTransformer, transform.NewDeprecatedFilter()},
		{plugin.PointDocumentableTransformer, transform.NewUndocumentedReporter()},
		{plugin.PointDocumentableTransformer, transform.NewEmptyPackagesFilter()},
		{plugin.PointPageTranslator, pagegen.NewDefaultTranslator(pagegen.Options{
			GenerateIndexPages: p.cfg.GenerateIndex(),
			External:           p.external,
		})},
		{plugin.PointPageTransformer, pages.NewNavigationInjector()},
		{plugin.PointPageTransformer, pages.NewSearchIndexInjector()},
		{plugin.PointRenderer, mdrender.NewRenderer(p.cfg.Output)},
	}
	for _, c := range contributions {
		if err := reg.Register(c.point, c.impl); err != nil {
			return err
		}
	}
	return nil
}
