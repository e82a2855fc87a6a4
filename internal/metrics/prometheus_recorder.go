package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once                 sync.Once
	stageDuration        *prom.HistogramVec
	runDuration          prom.Histogram
	stageResults         *prom.CounterVec
	runOutcome           *prom.CounterVec
	translateDuration    *prom.HistogramVec
	translateResults     *prom.CounterVec
	translateConcurrency prom.Gauge
	diagnostics          *prom.CounterVec
	fetchRetries         *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docweaver",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docweaver",
			Name:      "run_duration_seconds",
			Help:      "Total documentation run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docweaver",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docweaver",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.translateDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docweaver",
			Name:      "translate_platform_duration_seconds",
			Help:      "Duration of individual platform translations",
			Buckets:   prom.DefBuckets,
		}, []string{"platform", "result"})
		pr.translateResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docweaver",
			Name:      "translate_platform_results_total",
			Help:      "Platform translation results by success/failure",
		}, []string{"result"})
		pr.translateConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docweaver",
			Name:      "translate_concurrency",
			Help:      "Configured translation concurrency for the last run",
		})
		pr.diagnostics = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docweaver",
			Name:      "diagnostics_total",
			Help:      "Analysis diagnostics recorded, by severity",
		}, []string{"severity"})
		pr.fetchRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docweaver",
			Name:      "fetch_retries_total",
			Help:      "Source fetch retries (transient failures)",
		}, []string{"repository"})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcome,
			pr.translateDuration, pr.translateResults, pr.translateConcurrency, pr.diagnostics, pr.fetchRetries)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveTranslateDuration(platform string, d time.Duration, success bool) {
	if p == nil || p.translateDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.translateDuration.WithLabelValues(platform, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTranslateResult(success bool) {
	if p == nil || p.translateResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.translateResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetTranslateConcurrency(n int) {
	if p == nil || p.translateConcurrency == nil {
		return
	}
	p.translateConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) IncDiagnostic(severity string) {
	if p == nil || p.diagnostics == nil {
		return
	}
	p.diagnostics.WithLabelValues(severity).Inc()
}

func (p *PrometheusRecorder) IncFetchRetry(repo string) {
	if p == nil || p.fetchRetries == nil {
		return
	}
	p.fetchRetries.WithLabelValues(repo).Inc()
}
