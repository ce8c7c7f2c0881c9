// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dragonlink-project/dragonlink/cot"
	"github.com/dragonlink-project/dragonlink/lib/clock"
	"github.com/dragonlink-project/dragonlink/lib/metrics"
	"github.com/dragonlink-project/dragonlink/model"
	"github.com/dragonlink-project/dragonlink/transport"
	"github.com/dragonlink-project/dragonlink/wire"
)

// channelSender hands every sent payload to the test.
type channelSender struct {
	sent chan []byte
}

func (s *channelSender) Send(payload []byte) error {
	s.sent <- payload
	return nil
}

func (s *channelSender) State() transport.State { return transport.StateConnected }
func (s *channelSender) QueueDepth() int        { return 0 }

type workerFixture struct {
	worker *Worker
	sender *channelSender
	fake   *clock.FakeClock
	cancel context.CancelFunc
}

func startWorker(t *testing.T) *workerFixture {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	sender := &channelSender{sent: make(chan []byte, 64)}
	worker := NewWorker(WorkerConfig{
		Tracker:                model.NewTracker(),
		Manufacturers:          wire.DefaultManufacturerTable(),
		Encoder:                &cot.Encoder{},
		Sender:                 sender,
		Clock:                  fake,
		Logger:                 slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:                metrics.New(),
		DroneInterval:          time.Second,
		AircraftInterval:       3 * time.Second,
		PollInterval:           100 * time.Millisecond,
		BackgroundPollInterval: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	t.Cleanup(cancel)
	return &workerFixture{worker: worker, sender: sender, fake: fake, cancel: cancel}
}

func (f *workerFixture) receive(t *testing.T) []byte {
	t.Helper()
	select {
	case payload := <-f.sender.sent:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
		return nil
	}
}

func (f *workerFixture) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case payload := <-f.sender.sent:
		t.Fatalf("unexpected emission: %s", payload)
	default:
	}
}

// snapshot doubles as a processing barrier: the reply proves the
// worker has drained up to the query.
func (f *workerFixture) snapshot(t *testing.T) QueryResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := f.worker.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return result
}

var telemetryPayload = []byte(`[
	{"Basic ID": {"id": "XYZ", "id_type": "Serial Number (ANSI/CTA-2063-A)", "MAC": "34:D2:62:AA:BB:CC", "rssi": -63}},
	{"Location/Vector Message": {"latitude": 37.25, "longitude": -115.75, "speed": 17.5}},
	{"System Message": {"operator_lat": 37.24, "operator_lon": -115.74, "home_lat": 37.23, "home_lon": -115.73}}
]`)

func TestWorkerTelemetryToEgress(t *testing.T) {
	fixture := startWorker(t)
	fixture.worker.Telemetry() <- telemetryPayload

	// The drone event plus its operator and home companions.
	drone := fixture.receive(t)
	decoded, err := cot.Decode(drone)
	if err != nil {
		t.Fatalf("emitted event undecodable: %v", err)
	}
	if decoded.Drone == nil || decoded.Drone.ID != "drone-XYZ" {
		t.Fatalf("emitted drone = %+v", decoded.Drone)
	}
	if decoded.Drone.Manufacturer != "DJI" {
		t.Errorf("manufacturer not inferred: %q", decoded.Drone.Manufacturer)
	}

	pilot := fixture.receive(t)
	home := fixture.receive(t)
	pilotDecoded, _ := cot.Decode(pilot)
	homeDecoded, _ := cot.Decode(home)
	if pilotDecoded.Drone.PilotLat != 37.24 {
		t.Errorf("pilot companion = %+v", pilotDecoded.Drone)
	}
	if homeDecoded.Drone.HomeLat != 37.23 {
		t.Errorf("home companion = %+v", homeDecoded.Drone)
	}
}

func TestWorkerRateLimitsPerTrack(t *testing.T) {
	fixture := startWorker(t)

	fixture.worker.Telemetry() <- telemetryPayload
	fixture.receive(t) // drone
	fixture.receive(t) // pilot
	fixture.receive(t) // home

	// A second update inside the interval merges but does not emit.
	update := []byte(`[{"Basic ID": {"id": "XYZ", "id_type": "Serial Number (ANSI/CTA-2063-A)", "rssi": -40}}]`)
	fixture.worker.Telemetry() <- update
	waitForRSSI(t, fixture, -40)
	fixture.expectQuiet(t)

	// After the interval the track may emit again.
	fixture.fake.Advance(time.Second)
	fixture.worker.Telemetry() <- update
	decoded, err := cot.Decode(fixture.receive(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Drone.ID != "drone-XYZ" {
		t.Errorf("re-emitted drone = %+v", decoded.Drone)
	}
}

func waitForRSSI(t *testing.T, fixture *workerFixture, want float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		result := fixture.snapshot(t)
		if len(result.Drones) == 1 && result.Drones[0].RSSI == want {
			return
		}
	}
	t.Fatalf("merge never observed")
}

var statusPayload = []byte(`{
	"serial_number": "wardragon-100",
	"gps_data": {"latitude": 37.25, "longitude": -115.75, "altitude": 52.1},
	"system_stats": {"cpu_usage": 42.5, "memory": {"total": 8192, "available": 4096}, "disk": {"total": 512000, "used": 128000}, "temperature": 55.5, "uptime": 3600}
}`)

func TestWorkerStatusDedup(t *testing.T) {
	fixture := startWorker(t)

	fixture.worker.Status() <- statusPayload
	decoded, err := cot.Decode(fixture.receive(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Status == nil || decoded.Status.SerialNumber != "wardragon-100" {
		t.Fatalf("status event = %+v", decoded)
	}

	// The byte-identical re-broadcast is suppressed entirely.
	fixture.worker.Status() <- statusPayload
	fixture.snapshot(t)
	fixture.expectQuiet(t)
}

func TestWorkerMulticastMergesWithoutEgress(t *testing.T) {
	fixture := startWorker(t)

	encoder := &cot.Encoder{}
	event, err := encoder.Drone(&model.DroneRecord{
		ID:     "drone-REMOTE",
		IDType: model.IDTypeSerialNumber,
		Lat:    51.5,
		Lon:    -0.12,
	}, fixture.fake.Now())
	if err != nil {
		t.Fatal(err)
	}

	fixture.worker.Multicast() <- event
	// The select in Run picks ready channels in random order, so one
	// snapshot may be answered before the multicast payload is drained;
	// poll like waitForRSSI does.
	deadline := time.Now().Add(2 * time.Second)
	result := fixture.snapshot(t)
	for len(result.Drones) == 0 && time.Now().Before(deadline) {
		result = fixture.snapshot(t)
	}
	if len(result.Drones) != 1 || result.Drones[0].ID != "drone-REMOTE" {
		t.Fatalf("multicast record not merged: %+v", result.Drones)
	}
	// Inbound events never loop back out.
	fixture.expectQuiet(t)
}

func TestWorkerAircraftBatch(t *testing.T) {
	fixture := startWorker(t)

	fixture.worker.Aircraft() <- []model.AircraftRecord{
		{Hex: "ae1482", Flight: "RCH401", Lat: 36.1, Lon: -115.2},
		{Hex: "a00001", Lat: 36.2, Lon: -115.3},
	}
	first, _ := cot.Decode(fixture.receive(t))
	second, _ := cot.Decode(fixture.receive(t))
	if first.Drone == nil || second.Drone == nil {
		t.Fatal("aircraft events undecodable")
	}

	result := fixture.snapshot(t)
	if len(result.Aircraft) != 2 {
		t.Errorf("tracked aircraft = %d, want 2", len(result.Aircraft))
	}
}

func TestWorkerStopTracking(t *testing.T) {
	fixture := startWorker(t)

	fixture.worker.Telemetry() <- telemetryPayload
	fixture.receive(t)
	fixture.receive(t)
	fixture.receive(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	removed, err := fixture.worker.StopTracking(ctx, "drone-XYZ")
	if err != nil || !removed {
		t.Fatalf("StopTracking = %v, %v", removed, err)
	}
	if result := fixture.snapshot(t); len(result.Drones) != 0 {
		t.Errorf("record survived stop-tracking: %+v", result.Drones)
	}

	removed, err = fixture.worker.StopTracking(ctx, "drone-XYZ")
	if err != nil || removed {
		t.Errorf("second StopTracking = %v, %v; want false", removed, err)
	}
}

func TestWorkerDropsGarbageAndContinues(t *testing.T) {
	fixture := startWorker(t)

	fixture.worker.Telemetry() <- []byte("not json")
	fixture.worker.Telemetry() <- []byte(`{"unrelated": 1}`)
	fixture.worker.Telemetry() <- telemetryPayload

	decoded, err := cot.Decode(fixture.receive(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Drone.ID != "drone-XYZ" {
		t.Errorf("worker did not survive garbage: %+v", decoded.Drone)
	}
}
