package observability

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MetricsCollector tracks in-process run metrics. The daemon keeps one
// alongside the Prometheus recorder and serves its snapshot on the status
// endpoint, readable without a scrape pipeline.
type MetricsCollector struct {
	mu sync.RWMutex

	// Run metrics
	runCount     int64
	runDurations []time.Duration
	runErrors    int64
	runsByStatus map[string]int64

	// Stage metrics
	stageCount     map[string]int64
	stageDurations map[string][]time.Duration

	// Diagnostic metrics
	diagnosticsBySeverity map[string]int64

	// Link check cache metrics
	cacheHits   int64
	cacheMisses int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		runsByStatus:          make(map[string]int64),
		stageCount:            make(map[string]int64),
		stageDurations:        make(map[string][]time.Duration),
		diagnosticsBySeverity: make(map[string]int64),
	}
}

// RecordRunStart records the start of a documentation run.
func (mc *MetricsCollector) RecordRunStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.runCount++
	mc.runsByStatus["started"]++
}

// RecordRunEnd records the end of a documentation run.
func (mc *MetricsCollector) RecordRunEnd(duration time.Duration, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.runDurations = append(mc.runDurations, duration)
	if success {
		mc.runsByStatus["completed"]++
	} else {
		mc.runErrors++
		mc.runsByStatus["failed"]++
	}
}

// RecordStage records a stage execution.
func (mc *MetricsCollector) RecordStage(stageName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.stageCount[stageName]++
	mc.stageDurations[stageName] = append(mc.stageDurations[stageName], duration)
}

// RecordDiagnostics records diagnostic counts for one run.
func (mc *MetricsCollector) RecordDiagnostics(severity string, count int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.diagnosticsBySeverity[severity] += int64(count)
}

// RecordCacheHit records a link check cache hit.
func (mc *MetricsCollector) RecordCacheHit() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.cacheHits++
}

// RecordCacheMiss records a link check cache miss.
func (mc *MetricsCollector) RecordCacheMiss() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.cacheMisses++
}

// GetSnapshot returns a snapshot of current metrics.
func (mc *MetricsCollector) GetSnapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Timestamp:             time.Now(),
		TotalRuns:             mc.runCount,
		RunErrors:             mc.runErrors,
		RunsByStatus:          copyStringInt64Map(mc.runsByStatus),
		StageCount:            copyStringInt64Map(mc.stageCount),
		DiagnosticsBySeverity: copyStringInt64Map(mc.diagnosticsBySeverity),
		CacheHits:             mc.cacheHits,
		CacheMisses:           mc.cacheMisses,
		CacheHitRate:          calculateHitRate(mc.cacheHits, mc.cacheMisses),
	}

	if len(mc.runDurations) > 0 {
		snapshot.P50RunDuration = calculatePercentile(mc.runDurations, 50)
		snapshot.P95RunDuration = calculatePercentile(mc.runDurations, 95)
		snapshot.AvgRunDuration = calculateAverage(mc.runDurations)
	}

	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Timestamp             time.Time
	TotalRuns             int64
	RunErrors             int64
	RunsByStatus          map[string]int64
	P50RunDuration        time.Duration
	P95RunDuration        time.Duration
	AvgRunDuration        time.Duration
	StageCount            map[string]int64
	DiagnosticsBySeverity map[string]int64
	CacheHits             int64
	CacheMisses           int64
	CacheHitRate          float64
}

// FormatMetrics returns a human-readable string of metrics.
func (s MetricsSnapshot) FormatMetrics() string {
	successRate := 0.0
	if s.TotalRuns > 0 {
		successRate = float64(s.TotalRuns-s.RunErrors) / float64(s.TotalRuns) * 100
	}

	return fmt.Sprintf(`
=== Docweaver Metrics ===
Timestamp: %s

Run Metrics:
  Total Runs: %d
  Run Errors: %d
  Success Rate: %.2f%%

Run Durations:
  Average: %v
  P50: %v
  P95: %v

Stage Metrics: %d stages tracked
  Details: %v

Diagnostics: %v

Link Check Cache:
  Hits: %d, Misses: %d (%.2f%% hit rate)

Status Breakdown: %v
======================
`,
		s.Timestamp.Format(time.RFC3339),
		s.TotalRuns,
		s.RunErrors,
		successRate,
		s.AvgRunDuration,
		s.P50RunDuration,
		s.P95RunDuration,
		len(s.StageCount),
		s.StageCount,
		s.DiagnosticsBySeverity,
		s.CacheHits,
		s.CacheMisses,
		s.CacheHitRate*100,
		s.RunsByStatus,
	)
}

// Helper functions

func copyStringInt64Map(m map[string]int64) map[string]int64 {
	result := make(map[string]int64)
	for k, v := range m {
		result[k] = v
	}
	return result
}

func calculateHitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func calculateAverage(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := (len(sorted) * percentile) / 100
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
