// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "kolwatch"
	feedSubsystem    = "feed"
)

// Metrics holds Prometheus metrics for the subscription channel.
// All operations are thread-safe via Prometheus's internal locking.
type Metrics struct {
	// FramesTotal counts content frames received, by kind.
	// Labels: kind (full, partial-update, other)
	FramesTotal *prometheus.CounterVec

	// FramesMalformed counts dropped unparseable frames.
	FramesMalformed prometheus.Counter

	// FramesDeduped counts partial frames dropped because a full
	// frame for the same tweet was already buffered.
	FramesDeduped prometheus.Counter

	// ConnectsTotal counts successful connection establishments.
	ConnectsTotal prometheus.Counter

	// ReconnectsTotal counts scheduled automatic reconnect attempts.
	ReconnectsTotal prometheus.Counter

	// Connected is 1 while the channel is connected.
	Connected prometheus.Gauge

	// Subscriptions is the server-acknowledged subscription count.
	Subscriptions prometheus.Gauge

	// BufferSize is the current content buffer length.
	BufferSize prometheus.Gauge
}

// NewMetrics creates and registers channel metrics with reg.
// Registering twice with the same registry panics; create one Metrics
// per process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "frames_total",
				Help:      "Total content frames received by kind",
			},
			[]string{"kind"},
		),
		FramesMalformed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "frames_malformed_total",
				Help:      "Total unparseable frames dropped",
			},
		),
		FramesDeduped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "frames_deduped_total",
				Help:      "Total partial frames dropped in favor of a buffered full frame",
			},
		),
		ConnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "connects_total",
				Help:      "Total successful channel connections",
			},
		),
		ReconnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "reconnects_total",
				Help:      "Total automatic reconnect attempts scheduled",
			},
		),
		Connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "connected",
				Help:      "1 while the push channel is connected",
			},
		),
		Subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "subscriptions",
				Help:      "Server-acknowledged subscription count",
			},
		),
		BufferSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: feedSubsystem,
				Name:      "buffer_size",
				Help:      "Current content buffer length",
			},
		),
	}
}
