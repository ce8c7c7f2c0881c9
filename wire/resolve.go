// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strings"

	"github.com/dragonlink-project/dragonlink/model"
)

// Resolve selects the authoritative identity fragment from the
// candidates found in one broadcast. Priority, first match wins:
//
//  1. a standards-based serial number,
//  2. a civil-aviation-authority registration,
//  3. any remaining candidate with a non-empty identifier.
//
// The priority is total: the same candidate set resolves to the same
// fragment regardless of wire order. Within one priority class the
// first candidate in wire order wins. ok=false means the broadcast
// carries no usable identity and is discarded (not an error).
func Resolve(candidates []BasicID) (BasicID, bool) {
	for _, candidate := range candidates {
		if classifyIDType(candidate.IDType) == model.IDTypeSerialNumber {
			return candidate, true
		}
	}
	for _, candidate := range candidates {
		if classifyIDType(candidate.IDType) == model.IDTypeCAARegistration {
			return candidate, true
		}
	}
	for _, candidate := range candidates {
		if candidate.ID != "" {
			return candidate, true
		}
	}
	return BasicID{}, false
}

// classifyIDType maps the wire id-type label to the canonical enum.
func classifyIDType(label string) model.IDType {
	return model.ParseIDType(label)
}

// CanonicalID normalizes a resolved identifier into the record key
// namespace. The prefix is applied exactly once.
func CanonicalID(id string) string {
	if strings.HasPrefix(id, model.IDPrefix) {
		return id
	}
	return model.IDPrefix + id
}

// Record resolves the telemetry's identity and converts it to a
// canonical drone record. ok=false means no usable identity was found
// and the broadcast is discarded; this is expected for partial beacon
// fragments.
func (t *Telemetry) Record(manufacturers *ManufacturerTable) (*model.DroneRecord, bool) {
	resolved, ok := Resolve(t.BasicIDs)
	if !ok {
		return nil, false
	}

	record := &model.DroneRecord{
		ID:     CanonicalID(resolved.ID),
		IDType: classifyIDType(resolved.IDType),
	}
	if record.IDType == model.IDTypeCAARegistration {
		// The registration value is the resolved identifier with the
		// canonical-id namespace prefix stripped.
		record.CAARegistration = strings.TrimPrefix(resolved.ID, model.IDPrefix)
	}
	record.UAType = resolved.UAType
	record.ProtocolVersion = resolved.ProtocolVersion

	record.MAC = resolved.MAC
	if record.MAC == "" {
		record.MAC = t.MAC
	}
	record.RSSI = resolved.RSSI
	if record.RSSI == 0 {
		record.RSSI = t.RSSI
	}
	record.Channel = t.LinkChannel
	record.PHY = t.PHY
	record.AccessAddress = t.AccessAddress

	if t.Location != nil {
		record.Lat = t.Location.Lat
		record.Lon = t.Location.Lon
		record.AltitudeGeodetic = t.Location.AltitudeGeodetic
		record.HeightAGL = t.Location.HeightAGL
		record.Speed = t.Location.Speed
		record.VerticalSpeed = t.Location.VerticalSpeed
		record.Course = t.Location.Direction
	}
	if t.System != nil {
		record.PilotLat = t.System.OperatorLat
		record.PilotLon = t.System.OperatorLon
		record.HomeLat = t.System.HomeLat
		record.HomeLon = t.System.HomeLon
		if record.OperatorID == "" {
			record.OperatorID = t.System.OperatorID
		}
	}
	if t.SelfID != nil {
		record.Description = t.SelfID.Description
	}
	if t.OperatorID != nil && t.OperatorID.ID != "" {
		record.OperatorID = t.OperatorID.ID
	}

	record.Index = t.Index
	record.Runtime = t.Runtime
	record.Frequency = t.Frequency
	record.SeenBy = t.SeenBy
	record.ObservedAt = t.ObservedAt
	if t.Registry != nil {
		record.RegistryMake = t.Registry.Make
		record.RegistryModel = t.Registry.Model
		record.RegistrySource = t.Registry.Source
		record.RegistryMatched = t.Registry.Matched
	}

	if manufacturers != nil {
		if vendor, ok := manufacturers.Infer(record.MAC, record.Description); ok {
			record.Manufacturer = vendor
		}
	}

	return record, true
}

// Record converts a detection into a synthetic canonical record. The
// human-readable status string lands in the description so downstream
// surfaces can show "FPV5785MHz LOCK UPDATE" style labels.
func (d *Detection) Record() *model.DroneRecord {
	description := strings.TrimSpace(strings.Join(nonEmpty(d.DeviceType, d.Status), " "))
	return &model.DroneRecord{
		ID:          d.Key,
		IDType:      model.IDTypeUnknown,
		Description: description,
		RSSI:        d.RSSI,
		Frequency:   d.FrequencyMHz * 1e6,
		SeenBy:      d.Source,
	}
}

func nonEmpty(values ...string) []string {
	kept := values[:0]
	for _, value := range values {
		if value != "" {
			kept = append(kept, value)
		}
	}
	return kept
}
