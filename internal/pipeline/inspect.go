package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/plugin"
)

// InspectedContribution names one registered extension and the plugin that
// contributed it.
type InspectedContribution struct {
	Plugin string
	Impl   string
}

// InspectedPoint describes one extension point's wiring.
type InspectedPoint struct {
	Name          string
	Cardinality   string
	Contributions []InspectedContribution
}

// InspectResult is the outcome of a model-only run: everything up to and
// including the model transform chain, with the extension wiring that
// produced it. No pages are built and nothing is rendered.
type InspectResult struct {
	RunID       string
	Model       *model.Documentable
	Points      []InspectedPoint
	Diagnostics []diag.Diagnostic
	Warnings    int
	Errors      int
}

// Inspect runs the pipeline through the model transform chain. Bus
// subscribers see no events, so inspection never lands in run history.
func (r *Runner) Inspect(ctx context.Context) (*InspectResult, error) {
	if r.cfg == nil {
		return nil, errors.Configuration("pipeline requires a configuration")
	}
	rn := &run{
		Runner:    r,
		id:        uuid.NewString(),
		collector: diag.NewCollector(),
		quiet:     true,
	}
	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageSetupPlatforms, rn.setupPlatforms},
		{StageInitPlugins, rn.initPlugins},
		{StageTranslate, rn.translate},
		{StageMerge, rn.mergeModules},
		{StageTransformModel, rn.transformModel},
	}
	for _, step := range steps {
		if err := rn.stage(ctx, step.stage, step.fn); err != nil {
			return nil, err
		}
	}
	return &InspectResult{
		RunID:       rn.id,
		Model:       rn.model,
		Points:      inspectPoints(rn.registry),
		Diagnostics: rn.collector.Diagnostics(),
		Warnings:    rn.collector.Count(diag.SeverityWarning),
		Errors:      rn.collector.Count(diag.SeverityError),
	}, nil
}

func inspectPoints(reg *plugin.Registry) []InspectedPoint {
	if reg == nil {
		return nil
	}
	points := reg.Points()
	out := make([]InspectedPoint, 0, len(points))
	for _, p := range points {
		ip := InspectedPoint{Name: p.Name, Cardinality: p.Cardinality.String()}
		for _, c := range reg.Contributions(p) {
			ip.Contributions = append(ip.Contributions, InspectedContribution{
				Plugin: c.Plugin,
				Impl:   implName(c.Impl),
			})
		}
		out = append(out, ip)
	}
	return out
}

func implName(impl any) string {
	if n, ok := impl.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", impl)
}
