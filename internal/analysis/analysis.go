// Package analysis defines the seam between docweaver and the external
// analyzers that feed it. A front end analyzes one platform's sources and
// exposes the result as an opaque Context; translators turn contexts into
// documentable trees.
package analysis

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

// FrontEnd analyzes one platform's sources. Front ends are external
// collaborators handed to the pipeline directly; each pass selects one by
// kind name.
type FrontEnd interface {
	// Kind names the front end, e.g. "snapshot".
	Kind() string

	// CreateContext runs the analysis for one pass. Analyzer findings go
	// to setup.Reporter; only setup failures are returned as errors.
	CreateContext(ctx context.Context, setup Setup) (Context, error)
}

// Setup carries everything a front end needs to analyze one pass. Source
// roots are local paths: remote roots are fetched into the cache before
// setup runs.
type Setup struct {
	Platform        platform.PlatformData
	SourceRoots     []string
	Classpath       []string
	Includes        []string
	Samples         []string
	LanguageVersion string
	APIVersion      string
	Reporter        diag.Reporter
}

// Context is one platform's completed analysis session. The pipeline treats
// it as opaque; translators consume it.
type Context interface {
	// FrontEnd returns the kind of the front end that produced this context.
	FrontEnd() string

	// Symbols returns the analyzed declarations grouped by package.
	Symbols() []SymbolGroup

	// SourceFiles returns the pass's standalone documentation files.
	SourceFiles() []SourceFile
}

// PlatformContext binds one configured pass to its platform key and analysis
// session. Platform setup builds one per pass; every later stage works off
// these.
type PlatformContext struct {
	Platform platform.PlatformData
	Pass     config.Pass
	Module   string
	Analysis Context
}
