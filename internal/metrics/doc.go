// Package metrics provides an observability framework for docweaver run metrics.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics collection
// without requiring explicit nil checks throughout the codebase. By default,
// all components use NoopRecorder which implements the Recorder interface with
// no-op methods that inline to nothing at compile time.
//
// # Architecture
//
// The metrics system has three components:
//
//  1. Recorder interface - Defines all metrics operations
//  2. NoopRecorder - Default implementation that does nothing (zero overhead)
//  3. PrometheusRecorder - Prometheus adapter served by the daemon
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	p := pipeline.New(cfg, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// The daemon swaps in a PrometheusRecorder and serves the registry over HTTP;
// one-shot CLI builds keep the noop default.
package metrics
