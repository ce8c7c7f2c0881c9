// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"
	"time"
)

// IDPrefix is the namespace prefix for canonical drone ids. Every
// DroneRecord id is the resolved Basic-ID identifier with this prefix
// applied exactly once.
const IDPrefix = "drone-"

// IDType classifies the identifier carried by a drone's Basic-ID
// broadcast.
type IDType int

const (
	// IDTypeUnknown means the broadcast carried an identifier whose
	// type could not be classified.
	IDTypeUnknown IDType = iota

	// IDTypeSerialNumber is a standards-based serial number
	// (ANSI/CTA-2063-A).
	IDTypeSerialNumber

	// IDTypeCAARegistration is a civil-aviation-authority assigned
	// registration id.
	IDTypeCAARegistration
)

// String returns the human-readable id-type label used in remarks.
func (t IDType) String() string {
	switch t {
	case IDTypeSerialNumber:
		return "Serial Number (ANSI/CTA-2063-A)"
	case IDTypeCAARegistration:
		return "CAA Assigned Registration ID"
	default:
		return "Unknown"
	}
}

// ParseIDType classifies a wire id-type label. Matching is by
// substring so minor upstream label drift still classifies correctly.
func ParseIDType(label string) IDType {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "serial"):
		return IDTypeSerialNumber
	case strings.Contains(lower, "caa") || strings.Contains(lower, "registration"):
		return IDTypeCAARegistration
	default:
		return IDTypeUnknown
	}
}

// DroneRecord is one tracked unmanned aircraft. The id is assigned on
// first resolution and never changes; every later accepted message
// merges fields into the existing record.
type DroneRecord struct {
	// ID is the stable primary key: the resolved Basic-ID identifier
	// normalized with the IDPrefix namespace.
	ID     string
	IDType IDType

	// CAARegistration is set only when IDType is IDTypeCAARegistration.
	CAARegistration string

	// Position. 0.0 is the "unset" sentinel, not a valid coordinate.
	Lat              float64
	Lon              float64
	AltitudeGeodetic float64
	HeightAGL        float64

	// Kinematics.
	Speed         float64
	VerticalSpeed float64
	Course        float64

	// Operator and home locations, same zero-sentinel convention.
	PilotLat float64
	PilotLon float64
	HomeLat  float64
	HomeLon  float64

	// Transmission metadata.
	MAC             string
	RSSI            float64
	Manufacturer    string
	ProtocolVersion string
	Channel         int
	PHY             int
	AccessAddress   uint32

	// Free-text identification.
	Description string
	OperatorID  string
	UAType      string

	// Enrichment supplied by the collector backend.
	Frequency      float64
	SeenBy         string
	ObservedAt     float64
	RegistryMake   string
	RegistryModel  string
	RegistrySource string
	RegistryMatched bool

	// Counters carried on fragmented broadcasts.
	Index   int
	Runtime int

	// LastUpdated is refreshed on every accepted update.
	LastUpdated time.Time
}

// HasPosition reports whether the record carries a usable coordinate
// pair (both non-zero under the zero-sentinel convention).
func (r *DroneRecord) HasPosition() bool {
	return r.Lat != 0 && r.Lon != 0
}

// HasPilotPosition reports whether the operator location is known.
func (r *DroneRecord) HasPilotPosition() bool {
	return r.PilotLat != 0 && r.PilotLon != 0
}

// HasHomePosition reports whether the home/takeoff location is known.
func (r *DroneRecord) HasHomePosition() bool {
	return r.HomeLat != 0 && r.HomeLon != 0
}

// AircraftRecord is one tracked transponder-equipped aircraft, keyed
// by its hex transponder address. It is independent from DroneRecord.
type AircraftRecord struct {
	// Hex is the ICAO 24-bit transponder address in lowercase hex.
	Hex string

	Flight string

	// Position and kinematics, zero-sentinel convention.
	Lat          float64
	Lon          float64
	AltitudeBaro float64
	GroundSpeed  float64
	Track        float64
	VerticalRate float64

	Squawk   string
	Category string
	RSSI     float64

	LastUpdated time.Time
}

// StatusRecord is one collector/sensor health report, keyed by serial
// number. Each new report for the same key supersedes the previous one
// entirely; reports are never merged.
type StatusRecord struct {
	SerialNumber string

	// Collector location.
	Lat      float64
	Lon      float64
	Altitude float64
	Speed    float64
	Track    float64

	// Host health.
	CPUUsage        float64
	MemoryTotalMB   float64
	MemoryAvailMB   float64
	DiskTotalMB     float64
	DiskUsedMB      float64
	TemperatureC    float64
	UptimeSeconds   float64

	// Auxiliary SDR temperatures, optional (zero when absent).
	PlutoTempC float64
	ZynqTempC  float64

	LastUpdated time.Time
}
