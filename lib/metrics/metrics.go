// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the daemon's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the daemon updates. One instance is
// built at startup and handed to the components that report.
type Metrics struct {
	registry *prometheus.Registry

	// PayloadsReceived counts inbound payloads per channel
	// (telemetry, status, multicast, adsb).
	PayloadsReceived *prometheus.CounterVec

	// DecodeFailures counts dropped payloads per reason (malformed,
	// unrecognized).
	DecodeFailures *prometheus.CounterVec

	// RecordsTracked gauges live records per kind (drone, aircraft,
	// status).
	RecordsTracked *prometheus.GaugeVec

	// EventsEmitted counts outbound tactical events per kind.
	EventsEmitted *prometheus.CounterVec

	// DedupSuppressed counts status payloads dropped as byte-identical
	// re-broadcasts.
	DedupSuppressed prometheus.Counter

	// RateLimited counts emissions withheld by the per-track limiter.
	RateLimited prometheus.Counter

	// SendFailures counts synchronous transport send errors.
	SendFailures prometheus.Counter

	// QueueDepth gauges the transport's disconnected-send queue.
	QueueDepth prometheus.Gauge

	// TransportState gauges the connection state machine position
	// (0 disconnected, 1 connecting, 2 connected, 3 failed).
	TransportState prometheus.Gauge
}

// New builds the collector set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		PayloadsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlink_payloads_received_total",
			Help: "Inbound payloads by channel.",
		}, []string{"channel"}),
		DecodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlink_decode_failures_total",
			Help: "Dropped inbound payloads by reason.",
		}, []string{"reason"}),
		RecordsTracked: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dragonlink_records_tracked",
			Help: "Live canonical records by kind.",
		}, []string{"kind"}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dragonlink_events_emitted_total",
			Help: "Outbound tactical events by kind.",
		}, []string{"kind"}),
		DedupSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dragonlink_status_dedup_suppressed_total",
			Help: "Status payloads suppressed as identical re-broadcasts.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "dragonlink_rate_limited_total",
			Help: "Emissions withheld by the per-track rate limiter.",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dragonlink_send_failures_total",
			Help: "Synchronous transport send errors.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dragonlink_transport_queue_depth",
			Help: "Messages waiting in the disconnected-send queue.",
		}),
		TransportState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dragonlink_transport_state",
			Help: "Connection state (0 disconnected, 1 connecting, 2 connected, 3 failed).",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
