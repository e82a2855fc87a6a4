// Package translate turns per-platform analysis results into documentable
// trees. Two translator families contribute to every platform: the symbol
// translator renders the analyzed declarations, the file translator folds
// standalone documentation files in. Each produces one module tree; both
// trees enter the merge input sequence.
package translate

import (
	"context"

	"git.home.luguber.info/inful/docweaver/internal/analysis"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/model"
)

// Translator produces one platform's documentable tree.
//
// Analyzer findings are reported through reporter and never abort the run;
// a returned error is a translator failure and fails the whole run.
type Translator interface {
	// Name identifies the translator in logs and diagnostics.
	Name() string

	Translate(ctx context.Context, pctx *analysis.PlatformContext, reporter diag.Reporter) (*model.Documentable, error)
}
