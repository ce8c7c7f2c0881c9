// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dragonlink-project/dragonlink/cot"
	"github.com/dragonlink-project/dragonlink/dedup"
	"github.com/dragonlink-project/dragonlink/lib/clock"
	"github.com/dragonlink-project/dragonlink/lib/metrics"
	"github.com/dragonlink-project/dragonlink/model"
	"github.com/dragonlink-project/dragonlink/transport"
	"github.com/dragonlink-project/dragonlink/wire"
)

// Sender is the outbound side the worker needs from the transport.
type Sender interface {
	Send(payload []byte) error
	State() transport.State
	QueueDepth() int
}

// unrecognizedWarnInterval rate-limits warnings for unrecognized
// payload formats: a misconfigured upstream emits them continuously.
const unrecognizedWarnInterval = 10 * time.Second

// Query is one control-plane request served between pipeline messages.
type Query struct {
	// RemoveKey, when non-empty, asks for that record to stop being
	// tracked; otherwise the query is a snapshot.
	RemoveKey string

	// Reply receives the result. Must be buffered.
	Reply chan QueryResult
}

// QueryResult is the worker's answer to a Query.
type QueryResult struct {
	Drones   []model.DroneRecord
	Aircraft []model.AircraftRecord
	Statuses []model.StatusRecord
	Removed  bool
}

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Tracker       *model.Tracker
	Manufacturers *wire.ManufacturerTable
	Encoder       *cot.Encoder
	Sender        Sender
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics

	// Per-track minimum emit intervals.
	DroneInterval    time.Duration
	AircraftInterval time.Duration

	// Poll intervals for the idle tick (foreground / backgrounded).
	PollInterval           time.Duration
	BackgroundPollInterval time.Duration
}

// Worker owns the full pipeline: decode, resolve, merge, dedup, rate
// limit, encode, send. All of that state is touched only by the
// goroutine running Run.
type Worker struct {
	config          WorkerConfig
	statusDedup     *dedup.StatusDedup
	droneLimiter    *dedup.Limiter
	aircraftLimiter *dedup.Limiter

	telemetry chan []byte
	status    chan []byte
	multicast chan []byte
	aircraft  chan []model.AircraftRecord
	queries   chan Query

	backgrounded atomic.Bool

	lastUnrecognizedWarn time.Time
}

// NewWorker builds a Worker. Channels are buffered so source
// goroutines absorb short processing stalls without dropping.
func NewWorker(config WorkerConfig) *Worker {
	return &Worker{
		config:          config,
		statusDedup:     dedup.NewStatusDedup(config.Clock),
		droneLimiter:    dedup.NewLimiter(config.Clock, config.DroneInterval),
		aircraftLimiter: dedup.NewLimiter(config.Clock, config.AircraftInterval),
		telemetry:       make(chan []byte, 256),
		status:          make(chan []byte, 64),
		multicast:       make(chan []byte, 64),
		aircraft:        make(chan []model.AircraftRecord, 16),
		queries:         make(chan Query, 8),
	}
}

// Telemetry is the inbound drone-telemetry channel.
func (w *Worker) Telemetry() chan<- []byte { return w.telemetry }

// Status is the inbound collector-status channel.
func (w *Worker) Status() chan<- []byte { return w.status }

// Multicast is the inbound tactical-XML channel.
func (w *Worker) Multicast() chan<- []byte { return w.multicast }

// Aircraft is the inbound transponder-aircraft channel.
func (w *Worker) Aircraft() chan<- []model.AircraftRecord { return w.aircraft }

// SetBackgrounded switches the idle poll to the slower backgrounded
// interval. Safe from any goroutine.
func (w *Worker) SetBackgrounded(backgrounded bool) {
	w.backgrounded.Store(backgrounded)
}

// Snapshot returns copies of every tracked record.
func (w *Worker) Snapshot(ctx context.Context) (QueryResult, error) {
	return w.ask(ctx, Query{Reply: make(chan QueryResult, 1)})
}

// StopTracking removes one record by key. Reports whether the key
// existed.
func (w *Worker) StopTracking(ctx context.Context, key string) (bool, error) {
	result, err := w.ask(ctx, Query{RemoveKey: key, Reply: make(chan QueryResult, 1)})
	return result.Removed, err
}

func (w *Worker) ask(ctx context.Context, query Query) (QueryResult, error) {
	select {
	case w.queries <- query:
	case <-ctx.Done():
		return QueryResult{}, ctx.Err()
	}
	select {
	case result := <-query.Reply:
		return result, nil
	case <-ctx.Done():
		return QueryResult{}, ctx.Err()
	}
}

// Run drains every inbound channel until ctx is cancelled. The idle
// tick refreshes gauges when no traffic arrives within the poll
// interval.
func (w *Worker) Run(ctx context.Context) {
	for {
		poll := w.config.PollInterval
		if w.backgrounded.Load() {
			poll = w.config.BackgroundPollInterval
		}
		select {
		case <-ctx.Done():
			return
		case payload := <-w.telemetry:
			w.config.Metrics.PayloadsReceived.WithLabelValues("telemetry").Inc()
			w.handleTelemetry(payload)
		case payload := <-w.status:
			w.config.Metrics.PayloadsReceived.WithLabelValues("status").Inc()
			w.handleStatus(payload)
		case data := <-w.multicast:
			w.config.Metrics.PayloadsReceived.WithLabelValues("multicast").Inc()
			w.handleMulticast(data)
		case batch := <-w.aircraft:
			w.config.Metrics.PayloadsReceived.WithLabelValues("adsb").Inc()
			w.handleAircraft(batch)
		case query := <-w.queries:
			w.handleQuery(query)
		case <-w.config.Clock.After(poll):
		}
		w.refreshGauges()
	}
}

func (w *Worker) handleTelemetry(payload []byte) {
	decoded, err := wire.Decode(payload, wire.ChannelTelemetry)
	if err != nil {
		w.noteDecodeFailure(err)
		return
	}
	now := w.config.Clock.Now()
	switch decoded.Kind {
	case wire.KindTelemetry:
		record, ok := decoded.Telemetry.Record(w.config.Manufacturers)
		if !ok {
			// Partial beacon fragment with no usable identity.
			w.config.Logger.Debug("fragment without identity, skipped")
			return
		}
		merged := w.config.Tracker.UpsertDrone(record, now)
		w.emitDrone(merged, now)
	case wire.KindDetection:
		record := decoded.Detection.Record()
		merged := w.config.Tracker.UpsertDrone(record, now)
		w.emitDrone(merged, now)
	case wire.KindNone:
		w.config.Logger.Debug("payload carried nothing actionable")
	}
}

func (w *Worker) handleStatus(payload []byte) {
	decoded, err := wire.Decode(payload, wire.ChannelStatus)
	if err != nil {
		w.noteDecodeFailure(err)
		return
	}
	report := decoded.Status
	if !w.statusDedup.ShouldEmit(report.SerialNumber, payload) {
		w.config.Metrics.DedupSuppressed.Inc()
		return
	}
	now := w.config.Clock.Now()
	record := w.config.Tracker.SetStatus(report.Record(), now)
	payload, err = w.config.Encoder.Status(record, now)
	w.send(payload, err, "status")
}

func (w *Worker) handleMulticast(data []byte) {
	inbound, err := cot.Decode(data)
	if err != nil {
		w.noteDecodeFailure(err)
		return
	}
	now := w.config.Clock.Now()
	if inbound.Status != nil {
		w.config.Tracker.SetStatus(inbound.Status, now)
		return
	}
	// Inbound events merge into the model only; re-emitting them would
	// loop traffic back to the network they came from.
	w.config.Tracker.UpsertDrone(inbound.Drone, now)
}

func (w *Worker) handleAircraft(batch []model.AircraftRecord) {
	now := w.config.Clock.Now()
	for i := range batch {
		merged := w.config.Tracker.UpsertAircraft(&batch[i], now)
		if !w.aircraftLimiter.Allow(merged.Hex) {
			w.config.Metrics.RateLimited.Inc()
			continue
		}
		payload, err := w.config.Encoder.Aircraft(merged, now)
		w.send(payload, err, "aircraft")
	}
}

// emitDrone sends the drone event plus its operator/home companion
// events, subject to the per-track rate limit.
func (w *Worker) emitDrone(record *model.DroneRecord, now time.Time) {
	if !w.droneLimiter.Allow(record.ID) {
		w.config.Metrics.RateLimited.Inc()
		return
	}
	payload, err := w.config.Encoder.Drone(record, now)
	w.send(payload, err, "drone")
	if record.HasPilotPosition() {
		payload, err = w.config.Encoder.Pilot(record, now)
		w.send(payload, err, "pilot")
	}
	if record.HasHomePosition() {
		payload, err = w.config.Encoder.Home(record, now)
		w.send(payload, err, "home")
	}
}

func (w *Worker) send(payload []byte, encodeErr error, kind string) {
	if encodeErr != nil {
		w.config.Logger.Error("event encode failed", "kind", kind, "error", encodeErr)
		return
	}
	if err := w.config.Sender.Send(payload); err != nil {
		w.config.Metrics.SendFailures.Inc()
		w.config.Logger.Warn("send failed", "kind", kind, "error", err)
		return
	}
	w.config.Metrics.EventsEmitted.WithLabelValues(kind).Inc()
}

func (w *Worker) handleQuery(query Query) {
	if query.RemoveKey != "" {
		query.Reply <- QueryResult{Removed: w.config.Tracker.Remove(query.RemoveKey)}
		return
	}
	drones, aircraft, statuses := w.config.Tracker.Snapshot()
	query.Reply <- QueryResult{Drones: drones, Aircraft: aircraft, Statuses: statuses}
}

// noteDecodeFailure records a dropped payload. Unrecognized-format
// warnings are rate limited; malformed payloads warn every time.
func (w *Worker) noteDecodeFailure(err error) {
	switch {
	case errors.Is(err, wire.ErrUnrecognizedFormat):
		w.config.Metrics.DecodeFailures.WithLabelValues("unrecognized").Inc()
		now := w.config.Clock.Now()
		if now.Sub(w.lastUnrecognizedWarn) >= unrecognizedWarnInterval {
			w.lastUnrecognizedWarn = now
			w.config.Logger.Warn("unrecognized payload format", "error", err)
		}
	case errors.Is(err, wire.ErrMalformedPayload), errors.Is(err, cot.ErrMalformedEvent):
		w.config.Metrics.DecodeFailures.WithLabelValues("malformed").Inc()
		w.config.Logger.Warn("malformed payload dropped", "error", err)
	default:
		w.config.Metrics.DecodeFailures.WithLabelValues("other").Inc()
		w.config.Logger.Warn("payload dropped", "error", err)
	}
}

func (w *Worker) refreshGauges() {
	drones, aircraft, statuses := w.config.Tracker.Counts()
	w.config.Metrics.RecordsTracked.WithLabelValues("drone").Set(float64(drones))
	w.config.Metrics.RecordsTracked.WithLabelValues("aircraft").Set(float64(aircraft))
	w.config.Metrics.RecordsTracked.WithLabelValues("status").Set(float64(statuses))
	w.config.Metrics.QueueDepth.Set(float64(w.config.Sender.QueueDepth()))
	w.config.Metrics.TransportState.Set(float64(w.config.Sender.State()))
}
