// Package pipeline drives a documentation run through its fixed stage
// sequence: platform setup, plugin initialization, parallel per-platform
// translation, merge, the model transform chain, page building, the page
// transform chain, and rendering. Stages never mutate a previous stage's
// output; each consumes the prior value and produces the next. Run events
// go out on a synchronous bus, diagnostics accumulate in a collector and
// surface through the logger's closing report.
package pipeline

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docweaver/internal/analysis"
	"git.home.luguber.info/inful/docweaver/internal/analysis/snapshot"
	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/extdocs"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/merge"
	"git.home.luguber.info/inful/docweaver/internal/metrics"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/observability"
	"git.home.luguber.info/inful/docweaver/internal/pagegen"
	"git.home.luguber.info/inful/docweaver/internal/pages"
	"git.home.luguber.info/inful/docweaver/internal/platform"
	"git.home.luguber.info/inful/docweaver/internal/plugin"
	"git.home.luguber.info/inful/docweaver/internal/render"
	"git.home.luguber.info/inful/docweaver/internal/transform"
	"git.home.luguber.info/inful/docweaver/internal/translate"
)

// SourceResolver turns configured source roots into local paths, fetching
// remote ones into the cache. internal/fetch provides the git
// implementation; a nil resolver uses every root as-is.
type SourceResolver interface {
	Resolve(ctx context.Context, root string) (string, error)
}

// Runner executes documentation runs. A Runner is reusable: every Run call
// gets fresh per-run state, so the daemon drives repeated rebuilds through
// one Runner.
type Runner struct {
	cfg       *config.Config
	plugins   []plugin.Plugin
	frontEnds map[string]analysis.FrontEnd
	sources   SourceResolver
	external  *ExternalDocs
	client    *http.Client
	logger    Logger
	bus       *Bus
	recorder  metrics.Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithPlugins sets the plugins initialized at the init-plugins stage, in
// order.
func WithPlugins(ps ...plugin.Plugin) Option {
	return func(r *Runner) { r.plugins = append(r.plugins, ps...) }
}

// WithFrontEnds adds analysis front ends, indexed by their kind. The
// snapshot front end is always available.
func WithFrontEnds(fes ...analysis.FrontEnd) Option {
	return func(r *Runner) {
		for _, fe := range fes {
			r.frontEnds[fe.Kind()] = fe
		}
	}
}

// WithSourceResolver sets the resolver for remote source roots.
func WithSourceResolver(sr SourceResolver) Option {
	return func(r *Runner) { r.sources = sr }
}

// WithExternalDocs sets the holder the setup stage fills with the fetched
// external-documentation resolver.
func WithExternalDocs(e *ExternalDocs) Option {
	return func(r *Runner) { r.external = e }
}

// WithHTTPClient sets the client used for external documentation fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.client = c }
}

// WithBus sets the event bus. Handy when subscribers must attach before the
// first run.
func WithBus(b *Bus) Option {
	return func(r *Runner) { r.bus = b }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger replaces the default slog-backed logger.
func WithLogger(l Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner for the given configuration. The configuration is
// assumed structurally valid; callers run config.Validate first.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		frontEnds: map[string]analysis.FrontEnd{snapshot.Kind: snapshot.New()},
		bus:       NewBus(),
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = NewLogger(nil)
	}
	return r
}

// Bus returns the runner's event bus.
func (r *Runner) Bus() *Bus { return r.bus }

// RunResult summarizes a completed run.
type RunResult struct {
	RunID       string
	Model       *model.Documentable
	Pages       *pages.PageNode
	Diagnostics []diag.Diagnostic
	Warnings    int
	Errors      int
	PageCount   int
	Duration    time.Duration
}

// Run executes the full stage sequence. The returned error is a stage
// failure attributed to the stage that raised it; diagnostics never abort
// the run by themselves and are returned on the result for the caller's
// pass/fail policy.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.cfg == nil {
		return nil, errors.Configuration("pipeline requires a configuration")
	}
	rn := &run{
		Runner:    r,
		id:        uuid.NewString(),
		collector: diag.NewCollector(),
	}
	return rn.execute(ctx)
}

// run is the per-run state. Stage methods fill its fields in sequence.
type run struct {
	*Runner
	id        string
	collector *diag.Collector
	quiet     bool

	contexts []*analysis.PlatformContext
	registry *plugin.Registry
	exts     *extensions
	modules  []*model.Documentable
	model    *model.Documentable
	pages    *pages.PageNode
}

// extensions is every extension the run resolves eagerly during the
// init-plugins stage, so a missing or ambiguous contribution aborts before
// any translation work begins.
type extensions struct {
	symbolTranslators map[string]translate.Translator
	fileTranslator    translate.Translator
	merger            merge.Merger
	modelTransformers []transform.DocumentableTransformer
	pageTranslator    pagegen.Translator
	pageTransformers  []pages.PageTransformer
	renderer          render.Renderer
}

func (rn *run) execute(ctx context.Context) (*RunResult, error) {
	ctx = observability.WithRunID(ctx, rn.id)
	ctx, span := observability.GetGlobalTracer().StartRunSpan(ctx, rn.id)
	start := time.Now()
	rn.logger.Info("Documentation run started",
		logfields.RunID(rn.id), logfields.Module(rn.cfg.Module))
	rn.publish(RunStarted{baseEvent{rn.id}, rn.cfg.Module, start})

	err := rn.stages(ctx)
	duration := time.Since(start)
	observability.EndSpan(span, err)

	diagnostics := rn.collector.Diagnostics()
	warnings := rn.collector.Count(diag.SeverityWarning)
	errorCount := rn.collector.Count(diag.SeverityError)
	for _, d := range diagnostics {
		rn.recorder.IncDiagnostic(d.Severity.String())
		rn.publish(DiagnosticReported{baseEvent{rn.id}, d})
	}

	pageCount := 0
	if rn.pages != nil {
		pageCount = len(rn.pages.ContentPages())
	}

	outcome := runOutcome(err, warnings+errorCount)
	rn.recorder.ObserveRunDuration(duration)
	rn.recorder.IncRunOutcome(outcome)
	rn.publish(RunFinished{
		baseEvent: baseEvent{rn.id},
		Module:    rn.cfg.Module,
		Outcome:   string(outcome),
		Err:       err,
		At:        time.Now(),
		Duration:  duration,
		Warnings:  warnings,
		Errors:    errorCount,
		Pages:     pageCount,
	})
	rn.logger.Report(diagnostics)

	if err != nil {
		rn.logger.Error("Documentation run failed",
			logfields.RunID(rn.id),
			logfields.Stage(errors.FailedStage(err)),
			logfields.Error(err))
		return nil, err
	}
	rn.logger.Info("Documentation run finished",
		logfields.RunID(rn.id),
		logfields.Count(pageCount),
		logfields.DurationMS(float64(duration.Milliseconds())))
	return &RunResult{
		RunID:       rn.id,
		Model:       rn.model,
		Pages:       rn.pages,
		Diagnostics: diagnostics,
		Warnings:    warnings,
		Errors:      errorCount,
		PageCount:   pageCount,
		Duration:    duration,
	}, nil
}

func (rn *run) stages(ctx context.Context) error {
	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageSetupPlatforms, rn.setupPlatforms},
		{StageInitPlugins, rn.initPlugins},
		{StageTranslate, rn.translate},
		{StageMerge, rn.mergeModules},
		{StageTransformModel, rn.transformModel},
		{StageBuildPages, rn.buildPages},
		{StageTransformPages, rn.transformPages},
		{StageRender, rn.render},
	}
	for _, step := range steps {
		if err := rn.stage(ctx, step.stage, step.fn); err != nil {
			return err
		}
	}
	return nil
}

// stage runs one step with progress, events and metrics around it. Failures
// come back attributed to the stage.
func (rn *run) stage(ctx context.Context, s Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errors.StageFailure(string(s), stageCategory(s), err)
	}
	rn.logger.Progress(s)
	sctx := observability.WithStage(ctx, string(s))
	sctx, span := observability.GetGlobalTracer().StartStageSpan(sctx, string(s), rn.id)
	startedAt := time.Now()
	rn.publish(StageStarted{baseEvent{rn.id}, s, startedAt})

	err := fn(sctx)
	elapsed := time.Since(startedAt)
	observability.EndSpan(span, err)
	rn.recorder.ObserveStageDuration(string(s), elapsed)
	rn.recorder.IncStageResult(string(s), stageResult(err))
	rn.publish(StageCompleted{baseEvent{rn.id}, s, time.Now(), elapsed, err})

	if err != nil {
		return errors.StageFailure(string(s), stageCategory(s), err)
	}
	return nil
}

// publish sends an event; handler failures are logged, never fatal. Quiet
// runs (inspection) publish nothing.
func (rn *run) publish(e Event) {
	if rn.bus == nil || rn.quiet {
		return
	}
	if err := rn.bus.Publish(e); err != nil {
		rn.logger.Warn("Event handler failed",
			logfields.Error(err), logfields.RunID(rn.id))
	}
}

// setupPlatforms builds one analysis context per configured pass. Remote
// source roots are resolved into local paths first, and the configured
// external documentation indexes are fetched. Any per-pass failure is fatal
// for the whole run.
func (rn *run) setupPlatforms(ctx context.Context) error {
	if len(rn.cfg.Passes) == 0 {
		return errors.ConfigRequired("passes")
	}
	rn.contexts = make([]*analysis.PlatformContext, 0, len(rn.cfg.Passes))
	for i := range rn.cfg.Passes {
		pass := rn.cfg.Passes[i]
		kind, err := platform.ParseKind(pass.Kind)
		if err != nil {
			return errors.WrapConfiguration(err, "invalid platform kind").
				WithContext("pass", pass.Name)
		}
		pd := platform.New(pass.Name, kind, pass.Targets)

		roots, err := rn.resolveRoots(ctx, pass.SourceRoots)
		if err != nil {
			return errors.AnalysisSetupError(pass.Name, err)
		}

		fe, ok := rn.frontEnds[frontendKind(pass)]
		if !ok {
			return errors.Configuration("unknown analysis front end").
				WithContext("frontend", frontendKind(pass)).
				WithContext("pass", pass.Name)
		}

		actx, err := fe.CreateContext(ctx, analysis.Setup{
			Platform:        pd,
			SourceRoots:     roots,
			Classpath:       pass.Classpath,
			Includes:        pass.Includes,
			Samples:         pass.Samples,
			LanguageVersion: pass.LanguageVersion,
			APIVersion:      pass.APIVersion,
			Reporter:        rn.collector.ForPlatform(pass.Name),
		})
		if err != nil {
			return errors.AnalysisSetupError(pass.Name, err)
		}

		rn.contexts = append(rn.contexts, &analysis.PlatformContext{
			Platform: pd,
			Pass:     pass,
			Module:   rn.cfg.Module,
			Analysis: actx,
		})
		rn.logger.Info("Platform ready",
			logfields.Pass(pass.Name), logfields.Platform(pd.String()))
	}
	rn.fetchExternalDocs(ctx)
	return nil
}

func frontendKind(pass config.Pass) string {
	if pass.Frontend == "" {
		return snapshot.Kind
	}
	return pass.Frontend
}

func (rn *run) resolveRoots(ctx context.Context, roots []string) ([]string, error) {
	if rn.sources == nil {
		return roots, nil
	}
	out := make([]string, len(roots))
	for i, root := range roots {
		local, err := rn.sources.Resolve(ctx, root)
		if err != nil {
			return nil, err
		}
		out[i] = local
	}
	return out, nil
}

// fetchExternalDocs fills the shared ExternalDocs holder. Unreachable sites
// are warnings, never fatal.
func (rn *run) fetchExternalDocs(ctx context.Context) {
	if rn.external == nil || len(rn.cfg.ExternalDocumentation) == 0 {
		return
	}
	if rn.cfg.OfflineMode {
		rn.logger.Info("Offline mode, skipping external documentation",
			logfields.Count(len(rn.cfg.ExternalDocumentation)))
		return
	}
	resolver := extdocs.Fetch(ctx, rn.client, rn.cfg.ExternalDocumentation, rn.collector)
	rn.external.set(resolver)
	rn.logger.Info("External documentation resolved",
		logfields.Count(resolver.Sites()))
}

// initPlugins initializes the plugins, seals the registry, and resolves
// every extension the run needs.
func (rn *run) initPlugins(context.Context) error {
	reg := plugin.NewRegistry()
	if err := plugin.Initialize(reg, rn.plugins...); err != nil {
		return err
	}
	exts, err := resolveExtensions(reg, rn.contexts)
	if err != nil {
		return err
	}
	rn.registry = reg
	rn.exts = exts
	rn.logger.Info("Plugins initialized", logfields.Count(len(rn.plugins)))
	return nil
}

func resolveExtensions(reg *plugin.Registry, contexts []*analysis.PlatformContext) (*extensions, error) {
	exts := &extensions{symbolTranslators: map[string]translate.Translator{}}
	var err error
	if exts.fileTranslator, err = plugin.SingleOf[translate.Translator](reg, plugin.PointFileTranslator); err != nil {
		return nil, err
	}
	if exts.merger, err = plugin.SingleOf[merge.Merger](reg, plugin.PointDocumentableMerger); err != nil {
		return nil, err
	}
	if exts.modelTransformers, err = plugin.AllOf[transform.DocumentableTransformer](reg, plugin.PointDocumentableTransformer); err != nil {
		return nil, err
	}
	if exts.pageTranslator, err = plugin.SingleOf[pagegen.Translator](reg, plugin.PointPageTranslator); err != nil {
		return nil, err
	}
	if exts.pageTransformers, err = plugin.AllOf[pages.PageTransformer](reg, plugin.PointPageTransformer); err != nil {
		return nil, err
	}
	if exts.renderer, err = plugin.SingleOf[render.Renderer](reg, plugin.PointRenderer); err != nil {
		return nil, err
	}
	for _, pctx := range contexts {
		kind := pctx.Analysis.FrontEnd()
		if _, done := exts.symbolTranslators[kind]; done {
			continue
		}
		st, err := plugin.SingleOf[translate.Translator](reg, plugin.PointSymbolTranslator(kind))
		if err != nil {
			return nil, err
		}
		exts.symbolTranslators[kind] = st
	}
	return exts, nil
}

// translate fans translation out over the platforms with a bounded worker
// pool and joins before merge. Per platform, the symbol translator runs
// before the file translator and both trees enter the merge input in pass
// order, which fixes every first-wins tie-break downstream.
func (rn *run) translate(ctx context.Context) error {
	limit := rn.cfg.EffectiveConcurrency()
	rn.recorder.SetTranslateConcurrency(limit)

	perPlatform := make([][2]*model.Documentable, len(rn.contexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, pctx := range rn.contexts {
		g.Go(func() error {
			tctx := observability.WithPlatform(gctx, pctx.Platform.Name)
			reporter := rn.collector.ForPlatform(pctx.Platform.Name)
			start := time.Now()

			trees, err := rn.translatePlatform(tctx, pctx, reporter)
			elapsed := time.Since(start)
			rn.recorder.ObserveTranslateDuration(pctx.Platform.Name, elapsed, err == nil)
			rn.recorder.IncTranslateResult(err == nil)
			if err != nil {
				return errors.Wrap(err, errors.CategoryTranslate, errors.SeverityFatal,
					"platform translation failed").
					WithContext("platform", pctx.Platform.Name)
			}
			perPlatform[i] = trees
			observability.DebugContext(tctx, "Platform translated",
				logfields.DurationMS(float64(elapsed.Milliseconds())))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rn.modules = make([]*model.Documentable, 0, 2*len(rn.contexts))
	for _, pair := range perPlatform {
		for _, m := range pair {
			if m != nil {
				rn.modules = append(rn.modules, m)
			}
		}
	}
	return nil
}

func (rn *run) translatePlatform(ctx context.Context, pctx *analysis.PlatformContext, reporter diag.Reporter) ([2]*model.Documentable, error) {
	st := rn.exts.symbolTranslators[pctx.Analysis.FrontEnd()]
	symbols, err := st.Translate(ctx, pctx, reporter)
	if err != nil {
		return [2]*model.Documentable{}, err
	}
	files, err := rn.exts.fileTranslator.Translate(ctx, pctx, reporter)
	if err != nil {
		return [2]*model.Documentable{}, err
	}
	return [2]*model.Documentable{symbols, files}, nil
}

func (rn *run) mergeModules(ctx context.Context) error {
	merged, err := rn.exts.merger.Merge(ctx, rn.modules)
	if err != nil {
		return err
	}
	if merged == nil {
		return errors.New(errors.CategoryInternal, errors.SeverityFatal,
			"merger returned no module").
			WithContext("merger", rn.exts.merger.Name())
	}
	rn.model = merged
	return nil
}

func (rn *run) transformModel(ctx context.Context) error {
	env := &transform.Environment{Config: rn.cfg, Reporter: rn.collector}
	next, err := transform.Apply(ctx, env, rn.model, rn.exts.modelTransformers)
	if err != nil {
		return err
	}
	rn.model = next
	return nil
}

func (rn *run) buildPages(ctx context.Context) error {
	root, err := rn.exts.pageTranslator.Translate(ctx, rn.model)
	if err != nil {
		return err
	}
	if root == nil {
		return errors.New(errors.CategoryInternal, errors.SeverityFatal,
			"page translator returned no tree").
			WithContext("translator", rn.exts.pageTranslator.Name())
	}
	rn.pages = root
	return nil
}

func (rn *run) transformPages(ctx context.Context) error {
	next, err := pages.Apply(ctx, rn.pages, rn.exts.pageTransformers)
	if err != nil {
		return err
	}
	rn.pages = next
	return nil
}

func (rn *run) render(ctx context.Context) error {
	return rn.exts.renderer.Render(ctx, rn.pages)
}

func stageResult(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

func runOutcome(err error, diagnostics int) metrics.OutcomeLabel {
	switch {
	case err == nil && diagnostics == 0:
		return metrics.OutcomeSuccess
	case err == nil:
		return metrics.OutcomeWarning
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}
