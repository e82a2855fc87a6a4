// Package daemon keeps documentation continuously fresh. It rebuilds on a
// cron schedule, on changes to local source roots and the configuration
// file, and serves Prometheus metrics while running. Builds are serialized:
// triggers arriving during a build coalesce into exactly one follow-up.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/errors"
	"git.home.luguber.info/inful/docweaver/internal/fetch"
	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/metrics"
	"git.home.luguber.info/inful/docweaver/internal/observability"
)

// Builder runs one documentation build with the current configuration. The
// CLI provides the implementation that drives the pipeline runner.
type Builder interface {
	Build(ctx context.Context, cfg *config.Config) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, cfg *config.Config) error

func (f BuilderFunc) Build(ctx context.Context, cfg *config.Config) error { return f(ctx, cfg) }

// Daemon drives repeated documentation builds.
type Daemon struct {
	configPath string
	cfg        *config.Config
	builder    Builder
	debouncer  *Debouncer
	metricsH   http.Handler
	stats      *observability.MetricsCollector

	mu      sync.Mutex
	watcher *Watcher

	builds   atomic.Int64
	failures atomic.Int64
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithMetricsHandler sets the handler served at /metrics. Defaults to the
// global Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(d *Daemon) { d.metricsH = h }
}

// WithStats sets the in-process metrics collector served at /statusz.
func WithStats(mc *observability.MetricsCollector) Option {
	return func(d *Daemon) { d.stats = mc }
}

// New creates a daemon around a validated configuration. configPath is
// re-read when the watcher reports a configuration change.
func New(configPath string, cfg *config.Config, builder Builder, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.DaemonError("daemon requires a configuration")
	}
	if builder == nil {
		return nil, errors.DaemonError("daemon requires a builder")
	}
	quiet := debounceWindow(cfg)
	d := &Daemon{
		configPath: configPath,
		cfg:        cfg,
		builder:    builder,
		debouncer:  NewDebouncer(quiet, 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func debounceWindow(cfg *config.Config) time.Duration {
	if cfg.Daemon.Debounce == "" {
		return 0
	}
	quiet, err := time.ParseDuration(cfg.Daemon.Debounce)
	if err != nil {
		return 0
	}
	return quiet
}

// Builds returns the number of builds attempted since start.
func (d *Daemon) Builds() int64 { return d.builds.Load() }

// Failures returns the number of failed builds since start.
func (d *Daemon) Failures() int64 { return d.failures.Load() }

// Run starts every configured trigger source and processes build requests
// until the context is canceled. An initial build always runs first so the
// output is fresh from the moment the daemon is up.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if addr := d.cfg.Daemon.MetricsAddr; addr != "" {
		srv := d.metricsServer(addr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		slog.Info("Metrics endpoint up", slog.String("addr", addr))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.debouncer.Run(ctx)
	}()

	if d.cfg.Daemon.Watch {
		if err := d.startWatcher(ctx, &wg); err != nil {
			return err
		}
	}

	if spec := d.cfg.Daemon.Schedule; spec != "" {
		scheduler, err := newScheduler(spec, func() {
			d.debouncer.Trigger(ReasonSchedule, "")
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		slog.Info("Rebuild schedule active", slog.String("schedule", spec))
	}

	slog.Info("Daemon started",
		logfields.Module(d.cfg.Module),
		slog.Bool("watch", d.cfg.Daemon.Watch),
		slog.String("schedule", d.cfg.Daemon.Schedule))

	d.build(ctx, BuildRequest{Reason: ReasonStartup, Requests: 1})

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			slog.Info("Daemon stopped",
				slog.Int64("builds", d.Builds()),
				slog.Int64("failures", d.Failures()))
			return nil
		case req := <-d.debouncer.C():
			if req.ConfigChanged {
				d.reloadConfig(ctx, &wg)
			}
			d.build(ctx, req)
		}
	}
}

// build runs one documentation build. Failures are logged, never fatal for
// the daemon.
func (d *Daemon) build(ctx context.Context, req BuildRequest) {
	if ctx.Err() != nil {
		return
	}
	d.builds.Add(1)
	slog.Info("Rebuild starting",
		slog.String("reason", req.Reason),
		logfields.Count(req.Requests))

	start := time.Now()
	if err := d.builder.Build(ctx, d.currentConfig()); err != nil {
		d.failures.Add(1)
		slog.Error("Rebuild failed",
			slog.String("reason", req.Reason),
			logfields.Error(err))
		return
	}
	slog.Info("Rebuild finished",
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func (d *Daemon) currentConfig() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// reloadConfig re-reads the configuration file. An invalid file keeps the
// previous configuration so a half-saved edit cannot take the daemon down.
func (d *Daemon) reloadConfig(ctx context.Context, wg *sync.WaitGroup) {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		slog.Error("Config reload failed, keeping previous configuration",
			logfields.Path(d.configPath), logfields.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Config reload rejected, keeping previous configuration",
			logfields.Path(d.configPath), logfields.Error(err))
		return
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	if old.Daemon.Schedule != cfg.Daemon.Schedule ||
		old.Daemon.MetricsAddr != cfg.Daemon.MetricsAddr {
		slog.Warn("Schedule and metrics address changes take effect on restart")
	}
	if cfg.Daemon.Watch {
		d.restartWatcher(ctx, wg)
	}
	slog.Info("Configuration reloaded", logfields.Path(d.configPath))
}

func (d *Daemon) startWatcher(ctx context.Context, wg *sync.WaitGroup) error {
	w, err := NewWatcher(d.configPath, d.localRoots(), d.debouncer.Trigger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Close()
		return err
	}
	d.mu.Lock()
	d.watcher = w
	d.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	slog.Info("Source watcher active", logfields.Count(len(w.roots)))
	return nil
}

// restartWatcher swaps the watcher so a reloaded configuration's source
// roots are picked up.
func (d *Daemon) restartWatcher(ctx context.Context, wg *sync.WaitGroup) {
	d.mu.Lock()
	old := d.watcher
	d.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	if err := d.startWatcher(ctx, wg); err != nil {
		slog.Error("Failed to restart source watcher", logfields.Error(err))
	}
}

// localRoots returns the configured source roots that exist on the local
// filesystem. Remote roots are fetched into the cache per build; watching
// them is pointless.
func (d *Daemon) localRoots() []string {
	cfg := d.currentConfig()
	var roots []string
	seen := make(map[string]bool)
	for _, pass := range cfg.Passes {
		for _, root := range pass.SourceRoots {
			if _, remote := fetch.ParseRemote(root); remote {
				continue
			}
			if seen[root] {
				continue
			}
			seen[root] = true
			if _, err := os.Stat(root); err == nil {
				roots = append(roots, root)
			}
		}
	}
	return roots
}

func (d *Daemon) metricsServer(addr string) *http.Server {
	handler := d.metricsH
	if handler == nil {
		handler = metrics.HTTPHandler(nil)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.stats != nil {
		mux.HandleFunc("/statusz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(d.stats.GetSnapshot().FormatMetrics()))
		})
	}
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// newScheduler builds a gocron scheduler with one job on the given cron
// schedule. Validation already parsed the expression; failures here mean
// the configuration was not validated.
func newScheduler(spec string, onTick func()) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryDaemon, errors.SeverityFatal,
			"failed to create scheduler")
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(spec, false),
		gocron.NewTask(onTick),
		gocron.WithName("scheduled-rebuild"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, errors.Wrap(err, errors.CategoryDaemon, errors.SeverityFatal,
			"invalid rebuild schedule").WithContext("schedule", spec)
	}
	return scheduler, nil
}
