// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import "github.com/dragonlink-project/dragonlink/model"

// Request is one CBOR-encoded control request from the CLI to the
// daemon.
type Request struct {
	// Action is "status", "records", or "stop-tracking".
	Action string `cbor:"action"`

	// Key is the record key for "stop-tracking": a canonical drone id,
	// an aircraft hex address, or a collector serial number.
	Key string `cbor:"key,omitempty"`
}

// Response is the daemon's reply.
type Response struct {
	// OK reports whether the request succeeded.
	OK bool `cbor:"ok"`

	// Error holds the failure message when OK is false.
	Error string `cbor:"error,omitempty"`

	// Status is returned by "status".
	Status *DaemonStatus `cbor:"status,omitempty"`

	// Record listings, returned by "records".
	Drones   []model.DroneRecord    `cbor:"drones,omitempty"`
	Aircraft []model.AircraftRecord `cbor:"aircraft,omitempty"`
	Statuses []model.StatusRecord   `cbor:"statuses,omitempty"`

	// Removed reports whether "stop-tracking" found and removed the
	// key.
	Removed bool `cbor:"removed,omitempty"`
}

// DaemonStatus is a point-in-time snapshot of daemon health.
type DaemonStatus struct {
	UptimeSeconds   float64 `cbor:"uptime_seconds"`
	TrackedDrones   int     `cbor:"tracked_drones"`
	TrackedAircraft int     `cbor:"tracked_aircraft"`
	TrackedStatuses int     `cbor:"tracked_statuses"`
	TransportState  string  `cbor:"transport_state"`
	QueueDepth      int     `cbor:"queue_depth"`
}
