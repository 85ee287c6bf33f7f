// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the chat pipeline.
//
// # Description
//
// Metrics cover chat requests end to end:
//   - Request counters by route and status
//   - Latency histograms (time to first token, total turn duration)
//   - Active stream gauge
//   - Error counters by pipeline stage
//   - Passage grading failure counter
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "bookrag"
const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for chat pipeline operations.
// Initialize once at startup via InitMetrics; registering twice panics.
type ChatMetrics struct {
	// RequestsTotal counts chat turns by route and status.
	// Labels: route (retrieve, direct, refuse, unknown), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TimeToFirstTokenSeconds measures latency to the first streamed chunk.
	TimeToFirstTokenSeconds prometheus.Histogram

	// TurnDurationSeconds measures total turn duration.
	// Labels: status (success, error)
	TurnDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently open streaming responses.
	ActiveStreams prometheus.Gauge

	// ErrorsTotal counts failures by pipeline stage.
	// Labels: stage (classify, retrieve, grade, generate, stream_timeout, internal)
	ErrorsTotal *prometheus.CounterVec

	// GradingFailuresTotal counts individual passage grading calls that
	// failed and dropped their passage.
	GradingFailuresTotal prometheus.Counter

	// HistoryFailuresTotal counts failed history reads and writes.
	// Labels: op (load, append)
	HistoryFailuresTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all chat metrics on the default
// Prometheus registry. Call once at startup.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total chat turns by route and status",
			},
			[]string{"route", "status"},
		),

		TimeToFirstTokenSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "time_to_first_token_seconds",
				Help:      "Time from request to first streamed chunk in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		TurnDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Total chat turn duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open streaming responses",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total chat errors by pipeline stage",
			},
			[]string{"stage"},
		),

		GradingFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "grading_failures_total",
				Help:      "Passage grading calls that failed and dropped their passage",
			},
		),

		HistoryFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "history_failures_total",
				Help:      "Failed session history operations",
			},
			[]string{"op"},
		),
	}

	return DefaultMetrics
}

// Stage labels for ErrorsTotal.
const (
	StageClassify      = "classify"
	StageRetrieve      = "retrieve"
	StageGrade         = "grade"
	StageGenerate      = "generate"
	StageStreamTimeout = "stream_timeout"
	StageInternal      = "internal"
)
