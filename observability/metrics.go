// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the
// recommendation service.
//
// # Description
//
// Metrics cover the request surface and the pipeline internals:
//   - Request counters by endpoint and status
//   - Pipeline stage latency histograms
//   - Retrieval result counts
//   - Completion retry and fallback counters
//   - Active session gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. All metric operations
// are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "reelmind"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for the recommendation
// pipeline. Initialize once at startup via InitMetrics().
type PipelineMetrics struct {
	// RequestsTotal counts HTTP requests by endpoint and status.
	RequestsTotal *prometheus.CounterVec

	// StageSeconds measures per-stage pipeline latency.
	StageSeconds *prometheus.HistogramVec

	// RetrievalResults observes how many items each search returned.
	RetrievalResults prometheus.Histogram

	// ExtractionFallbacksTotal counts regex-fallback extractions.
	ExtractionFallbacksTotal prometheus.Counter

	// CompletionRetriesTotal counts retried completion calls.
	CompletionRetriesTotal prometheus.Counter

	// CompletionFallbacksTotal counts answers served from the static
	// fallback after retries were exhausted.
	CompletionFallbacksTotal prometheus.Counter

	// FunctionCallsTotal counts model function calls by function name.
	FunctionCallsTotal *prometheus.CounterVec

	// ActiveSessions gauges live sessions in memory.
	ActiveSessions prometheus.Gauge
}

var (
	defaultMetrics *PipelineMetrics
	metricsOnce    sync.Once
)

// InitMetrics initializes and returns the singleton metrics instance.
// Safe to call more than once; only the first call registers.
func InitMetrics() *PipelineMetrics {
	metricsOnce.Do(func() {
		defaultMetrics = &PipelineMetrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "requests_total",
					Help:      "HTTP requests by endpoint and status.",
				},
				[]string{"endpoint", "status"},
			),
			StageSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "stage_seconds",
					Help:      "Latency of each pipeline stage.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
			RetrievalResults: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "retrieval_results",
					Help:      "Number of items returned per retrieval.",
					Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
				},
			),
			ExtractionFallbacksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "extraction_fallbacks_total",
					Help:      "Extractions that used the regex fallback path.",
				},
			),
			CompletionRetriesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "completion_retries_total",
					Help:      "Completion calls that were retried.",
				},
			),
			CompletionFallbacksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "completion_fallbacks_total",
					Help:      "Answers served from the static fallback.",
				},
			),
			FunctionCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "function_calls_total",
					Help:      "Model function calls by function name.",
				},
				[]string{"function"},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Subsystem: pipelineSubsystem,
					Name:      "active_sessions",
					Help:      "Sessions currently held in memory.",
				},
			),
		}
	})
	return defaultMetrics
}
