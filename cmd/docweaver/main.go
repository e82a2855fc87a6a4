package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docweaver/internal/baseplugin"
	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/daemon"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/fetch"
	"git.home.luguber.info/inful/docweaver/internal/linkcheck"
	"git.home.luguber.info/inful/docweaver/internal/metrics"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/observability"
	"git.home.luguber.info/inful/docweaver/internal/pipeline"
	"git.home.luguber.info/inful/docweaver/internal/platform"
	"git.home.luguber.info/inful/docweaver/internal/runstore"
	"git.home.luguber.info/inful/docweaver/internal/version"
	"git.home.luguber.info/inful/docweaver/internal/workspace"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docweaver.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		FailOnWarning bool `help:"Exit non-zero when the run records warnings"`
	} `cmd:"" help:"Run the documentation pipeline once"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Clean struct{} `cmd:"" help:"Remove fetched sources from the cache"`

	Inspect struct {
		Runs  bool `help:"List recorded runs instead of inspecting the model"`
		Limit int  `help:"Maximum number of runs to list" default:"20"`
	} `cmd:"" help:"Build the documentation model without rendering and report on it"`

	Daemon struct{} `cmd:"" help:"Run continuously: watch sources, rebuild on change, serve metrics"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	adapter := errors.NewCLIErrorAdapter(CLI.Verbose, nil)

	var err error
	switch kctx.Command() {
	case "build":
		err = runBuild()
	case "init":
		err = runInit()
	case "clean":
		err = runClean()
	case "inspect":
		err = runInspect()
	case "daemon":
		err = runDaemon()
	case "version":
		printVersion()
	}
	adapter.HandleError(err)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunner wires a pipeline runner the same way for every command: the base
// plugin, external documentation resolution and remote source fetching.
func newRunner(cfg *config.Config, rec metrics.Recorder) (*pipeline.Runner, error) {
	layout := workspace.New(cfg.CacheRoot)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	external := pipeline.NewExternalDocs()
	opts := []pipeline.Option{
		pipeline.WithPlugins(baseplugin.New(cfg, external)),
		pipeline.WithExternalDocs(external),
		pipeline.WithSourceResolver(fetch.NewResolver(layout)),
	}
	if rec != nil {
		opts = append(opts, pipeline.WithRecorder(rec))
	}
	return pipeline.New(cfg, opts...), nil
}

// buildOnce runs the full pipeline, records the run in history when a store
// is given and follows up with link checking. It returns the total warning
// count so the caller can apply its pass/fail policy.
func buildOnce(ctx context.Context, cfg *config.Config, store *runstore.Store, rec metrics.Recorder, stats *observability.MetricsCollector) (int, error) {
	runner, err := newRunner(cfg, rec)
	if err != nil {
		return 0, err
	}
	if store != nil {
		pipeline.AttachHistory(runner.Bus(), store)
	}
	if stats != nil {
		pipeline.AttachStats(runner.Bus(), stats)
	}

	res, err := runner.Run(ctx)
	if err != nil {
		return 0, err
	}

	slog.Info("Build finished",
		"run_id", res.RunID,
		"pages", res.PageCount,
		"warnings", res.Warnings,
		"errors", res.Errors,
		"duration", res.Duration)

	warnings := res.Warnings
	if cfg.LinkCheck.Enabled && !cfg.OfflineMode {
		warnings += checkLinks(ctx, cfg, res, stats)
	}
	return warnings, nil
}

// checkLinks verifies the external links collected in the model and reports
// broken ones as warnings. Link checking is a best-effort follow-up: a
// checker that cannot start or finish never fails the build.
func checkLinks(ctx context.Context, cfg *config.Config, res *pipeline.RunResult, stats *observability.MetricsCollector) int {
	checker, err := linkcheck.New(&cfg.LinkCheck)
	if err != nil {
		slog.Warn("Link checking unavailable", "error", err)
		return 0
	}
	defer checker.Close()

	report, err := checker.Check(ctx, res.Model, res.RunID)
	if err != nil {
		slog.Warn("Link checking failed", "error", err)
		return 0
	}
	if stats != nil {
		for range report.FromCache {
			stats.RecordCacheHit()
		}
		for range report.Links - report.FromCache {
			stats.RecordCacheMiss()
		}
	}
	if report.Broken() > 0 {
		pipeline.NewLogger(nil).Report(report.Diagnostics())
	}
	return report.Broken()
}

func openHistory(cfg *config.Config) *runstore.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := runstore.Open(cfg.HistoryPath())
	if err != nil {
		slog.Warn("Run history unavailable", "path", cfg.HistoryPath(), "error", err)
		return nil
	}
	return store
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := openHistory(cfg)
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	warnings, err := buildOnce(ctx, cfg, store, nil, nil)
	if err != nil {
		return err
	}
	if (cfg.FailOnWarning || CLI.Build.FailOnWarning) && warnings > 0 {
		return errors.New(errors.CategoryValidation, errors.SeverityError,
			fmt.Sprintf("run completed with %d warning(s)", warnings))
	}
	return nil
}

func runInit() error {
	slog.Info("Initializing configuration", "path", CLI.Config, "force", CLI.Init.Force)
	return config.Init(CLI.Config, CLI.Init.Force)
}

func runClean() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return workspace.New(cfg.CacheRoot).CleanSources()
}

func runInspect() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Inspect.Runs {
		return listRuns(cfg)
	}

	runner, err := newRunner(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := runner.Inspect(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Module %s: %d declarations in %d package(s)\n",
		res.Model.Name, res.Model.Count(), len(res.Model.Packages()))
	for _, p := range modelPlatforms(res.Model) {
		fmt.Printf("  platform %-12s kind=%s", p.Name, p.Kind)
		if p.Targets != "" {
			fmt.Printf(" targets=%s", p.Targets)
		}
		fmt.Println()
	}
	if res.Warnings > 0 || res.Errors > 0 {
		fmt.Printf("Diagnostics: %d warning(s), %d error(s)\n", res.Warnings, res.Errors)
	}

	fmt.Println()
	fmt.Println("Extension points:")
	for _, point := range res.Points {
		fmt.Printf("  %-28s %s\n", point.Name, point.Cardinality)
		for _, c := range point.Contributions {
			fmt.Printf("    %-26s from %s\n", c.Impl, c.Plugin)
		}
	}
	return nil
}

// modelPlatforms collects the distinct platforms present anywhere in the
// model. The module root itself carries no facts, so the platform set comes
// from walking the tree.
func modelPlatforms(root *model.Documentable) []platform.PlatformData {
	seen := make(map[platform.PlatformData]struct{})
	var out []platform.PlatformData
	root.Walk(func(d *model.Documentable) bool {
		for _, p := range d.Platforms() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func listRuns(cfg *config.Config) error {
	store, err := runstore.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := store.RecentRuns(ctx, CLI.Inspect.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-9s %6s %6s %6s %10s\n",
		"RUN", "STARTED", "OUTCOME", "PAGES", "WARN", "ERR", "DURATION")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Printf("%-36s %-20s %-9s %6d %6d %6d %10s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Outcome,
			r.Pages, r.Warnings, r.Errors, duration)
		if r.Error != "" {
			fmt.Printf("  error: %s\n", r.Error)
		}
	}
	return nil
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	stats := observability.NewMetricsCollector()

	store := openHistory(cfg)
	if store != nil {
		defer store.Close()
	}

	builder := daemon.BuilderFunc(func(ctx context.Context, cfg *config.Config) error {
		_, err := buildOnce(ctx, cfg, store, rec, stats)
		return err
	})

	d, err := daemon.New(CLI.Config, cfg, builder,
		daemon.WithMetricsHandler(metrics.HTTPHandler(reg)),
		daemon.WithStats(stats))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.Run(ctx)
}

func printVersion() {
	fmt.Printf("docweaver %s (commit %s, built %s)\n",
		version.Version, version.GitCommit, version.BuildTime)
}
