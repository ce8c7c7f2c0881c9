// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// Tracker owns the canonical record tables. It is not safe for
// concurrent use: a single inbound worker owns it exclusively, and
// other goroutines reach it only through that worker (see
// ingest.Worker's snapshot and remove request channels).
//
// Merges apply strictly in call order. A position from an older
// broadcast that arrives after a newer one overwrites the newer state;
// callers that need strict ordering must serialize updates by arrival
// time. This mirrors the upstream collector chain, which provides
// per-channel ordering only.
type Tracker struct {
	drones   map[string]*DroneRecord
	aircraft map[string]*AircraftRecord
	statuses map[string]*StatusRecord
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		drones:   make(map[string]*DroneRecord),
		aircraft: make(map[string]*AircraftRecord),
		statuses: make(map[string]*StatusRecord),
	}
}

// UpsertDrone merges update into the record keyed by update.ID,
// creating the record on first sight. The stored record's ID never
// changes; zero-valued coordinates in the update never erase known
// non-zero values. Returns the merged record.
func (t *Tracker) UpsertDrone(update *DroneRecord, now time.Time) *DroneRecord {
	record, ok := t.drones[update.ID]
	if !ok {
		clone := *update
		clone.LastUpdated = now
		t.drones[update.ID] = &clone
		return &clone
	}

	if update.IDType != IDTypeUnknown {
		record.IDType = update.IDType
	}
	mergeString(&record.CAARegistration, update.CAARegistration)

	mergeCoordinate(&record.Lat, update.Lat)
	mergeCoordinate(&record.Lon, update.Lon)
	mergeCoordinate(&record.AltitudeGeodetic, update.AltitudeGeodetic)
	mergeCoordinate(&record.HeightAGL, update.HeightAGL)

	mergeCoordinate(&record.Speed, update.Speed)
	if update.VerticalSpeed != 0 {
		record.VerticalSpeed = update.VerticalSpeed
	}
	mergeCoordinate(&record.Course, update.Course)

	mergeCoordinate(&record.PilotLat, update.PilotLat)
	mergeCoordinate(&record.PilotLon, update.PilotLon)
	mergeCoordinate(&record.HomeLat, update.HomeLat)
	mergeCoordinate(&record.HomeLon, update.HomeLon)

	mergeString(&record.MAC, update.MAC)
	if update.RSSI != 0 {
		record.RSSI = update.RSSI
	}
	mergeString(&record.Manufacturer, update.Manufacturer)
	mergeString(&record.ProtocolVersion, update.ProtocolVersion)
	if update.Channel != 0 {
		record.Channel = update.Channel
	}
	if update.PHY != 0 {
		record.PHY = update.PHY
	}
	if update.AccessAddress != 0 {
		record.AccessAddress = update.AccessAddress
	}

	mergeString(&record.Description, update.Description)
	mergeString(&record.OperatorID, update.OperatorID)
	mergeString(&record.UAType, update.UAType)

	if update.Frequency != 0 {
		record.Frequency = update.Frequency
	}
	mergeString(&record.SeenBy, update.SeenBy)
	if update.ObservedAt != 0 {
		record.ObservedAt = update.ObservedAt
	}
	mergeString(&record.RegistryMake, update.RegistryMake)
	mergeString(&record.RegistryModel, update.RegistryModel)
	mergeString(&record.RegistrySource, update.RegistrySource)
	if update.RegistryMatched {
		record.RegistryMatched = true
	}

	if update.Index != 0 {
		record.Index = update.Index
	}
	if update.Runtime != 0 {
		record.Runtime = update.Runtime
	}

	record.LastUpdated = now
	return record
}

// UpsertAircraft merges update into the record keyed by update.Hex,
// with the same zero-sentinel protection as drones.
func (t *Tracker) UpsertAircraft(update *AircraftRecord, now time.Time) *AircraftRecord {
	record, ok := t.aircraft[update.Hex]
	if !ok {
		clone := *update
		clone.LastUpdated = now
		t.aircraft[update.Hex] = &clone
		return &clone
	}

	mergeString(&record.Flight, update.Flight)
	mergeCoordinate(&record.Lat, update.Lat)
	mergeCoordinate(&record.Lon, update.Lon)
	mergeCoordinate(&record.AltitudeBaro, update.AltitudeBaro)
	mergeCoordinate(&record.GroundSpeed, update.GroundSpeed)
	mergeCoordinate(&record.Track, update.Track)
	if update.VerticalRate != 0 {
		record.VerticalRate = update.VerticalRate
	}
	mergeString(&record.Squawk, update.Squawk)
	mergeString(&record.Category, update.Category)
	if update.RSSI != 0 {
		record.RSSI = update.RSSI
	}

	record.LastUpdated = now
	return record
}

// SetStatus replaces the status record for report.SerialNumber. Status
// reports supersede, never merge.
func (t *Tracker) SetStatus(report *StatusRecord, now time.Time) *StatusRecord {
	clone := *report
	clone.LastUpdated = now
	t.statuses[report.SerialNumber] = &clone
	return &clone
}

// Drone returns the record for id, or nil.
func (t *Tracker) Drone(id string) *DroneRecord { return t.drones[id] }

// Aircraft returns the record for hex, or nil.
func (t *Tracker) Aircraft(hex string) *AircraftRecord { return t.aircraft[hex] }

// Status returns the status record for serial, or nil.
func (t *Tracker) Status(serial string) *StatusRecord { return t.statuses[serial] }

// Remove deletes the drone, aircraft, or status record with the given
// key. This is the explicit external "stop tracking" action; the
// tracker never expires records on its own.
func (t *Tracker) Remove(key string) bool {
	if _, ok := t.drones[key]; ok {
		delete(t.drones, key)
		return true
	}
	if _, ok := t.aircraft[key]; ok {
		delete(t.aircraft, key)
		return true
	}
	if _, ok := t.statuses[key]; ok {
		delete(t.statuses, key)
		return true
	}
	return false
}

// Snapshot returns copies of all current records. The copies are safe
// to hand to other goroutines.
func (t *Tracker) Snapshot() ([]DroneRecord, []AircraftRecord, []StatusRecord) {
	drones := make([]DroneRecord, 0, len(t.drones))
	for _, record := range t.drones {
		drones = append(drones, *record)
	}
	aircraft := make([]AircraftRecord, 0, len(t.aircraft))
	for _, record := range t.aircraft {
		aircraft = append(aircraft, *record)
	}
	statuses := make([]StatusRecord, 0, len(t.statuses))
	for _, record := range t.statuses {
		statuses = append(statuses, *record)
	}
	return drones, aircraft, statuses
}

// Counts returns the number of tracked drones, aircraft, and statuses.
func (t *Tracker) Counts() (drones, aircraft, statuses int) {
	return len(t.drones), len(t.aircraft), len(t.statuses)
}

// mergeCoordinate overwrites dst only when the incoming value is
// non-zero: under the zero-sentinel convention a zero means "unknown"
// and must never erase position history.
func mergeCoordinate(dst *float64, value float64) {
	if value != 0 {
		*dst = value
	}
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
