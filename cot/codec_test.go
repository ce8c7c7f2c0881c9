// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package cot

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dragonlink-project/dragonlink/model"
)

var encodeTime = time.Date(2026, 5, 1, 14, 22, 33, 0, time.UTC)

func TestDroneRoundTrip(t *testing.T) {
	original := &model.DroneRecord{
		ID:               "drone-112624150A90E3AE1EC0",
		IDType:           model.IDTypeSerialNumber,
		Lat:              37.2501234,
		Lon:              -115.7509876,
		AltitudeGeodetic: 312.5,
		HeightAGL:        210,
		Speed:            17.5,
		VerticalSpeed:    -1.2,
		Course:           123.4,
		PilotLat:         37.24,
		PilotLon:         -115.74,
		HomeLat:          37.23,
		HomeLon:          -115.73,
		MAC:              "8e:3b:93:22:33:fa",
		RSSI:             -63,
		Manufacturer:     "DJI",
		ProtocolVersion:  "F3411.19",
		Channel:          37,
		PHY:              2,
		AccessAddress:    2391391958,
		Description:      "Anzu Raptor",
		OperatorID:       "OP-123",
		UAType:           "Helicopter (or Multirotor)",
		Frequency:        5785000000,
		SeenBy:           "wardragon-142",
		ObservedAt:       1767200000.5,
		RegistryMake:     "DJI",
		RegistryModel:    "Mavic 3",
		RegistrySource:   "FAA",
		RegistryMatched:  true,
		Index:            7,
		Runtime:          120,
	}

	encoder := &Encoder{}
	data, err := encoder.Drone(original, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Drone == nil {
		t.Fatal("decoded as status, want drone")
	}
	if !reflect.DeepEqual(decoded.Drone, original) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", decoded.Drone, original)
	}
}

func TestDroneRoundTripRegistration(t *testing.T) {
	original := &model.DroneRecord{
		ID:              "drone-FIN87astrdge12k8",
		IDType:          model.IDTypeCAARegistration,
		CAARegistration: "FIN87astrdge12k8",
		Lat:             60.1699,
		Lon:             24.9384,
	}

	encoder := &Encoder{}
	data, err := encoder.Drone(original, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Drone, original) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", decoded.Drone, original)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	original := &model.StatusRecord{
		SerialNumber:  "wardragon-100",
		Lat:           37.25,
		Lon:           -115.75,
		Altitude:      52.1,
		Speed:         1.2,
		Track:         270,
		CPUUsage:      42.5,
		MemoryTotalMB: 8192,
		MemoryAvailMB: 4096,
		DiskTotalMB:   512000,
		DiskUsedMB:    128000,
		TemperatureC:  55.5,
		UptimeSeconds: 3600,
		PlutoTempC:    48,
		ZynqTempC:     51.5,
	}

	encoder := &Encoder{}
	data, err := encoder.Status(original, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Status == nil {
		t.Fatal("decoded as drone, want status (remarks sniff failed)")
	}
	if !reflect.DeepEqual(decoded.Status, original) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", decoded.Status, original)
	}
}

func TestDroneEventTypeSynthesis(t *testing.T) {
	cases := []struct {
		name   string
		record model.DroneRecord
		want   string
	}{
		{"serial", model.DroneRecord{IDType: model.IDTypeSerialNumber}, "a-u-A-M-H-S"},
		{"registration", model.DroneRecord{IDType: model.IDTypeCAARegistration}, "a-u-A-M-H-R"},
		{"unknown", model.DroneRecord{}, "a-u-A-M-H-U"},
		{
			"serial with operator",
			model.DroneRecord{IDType: model.IDTypeSerialNumber, PilotLat: 37.24, PilotLon: -115.74},
			"a-u-A-M-H-S-O",
		},
	}
	for _, tc := range cases {
		if got := droneEventType(&tc.record); got != tc.want {
			t.Errorf("%s: type = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEncodeEscapesFreeText(t *testing.T) {
	record := &model.DroneRecord{
		ID:          "drone-XYZ",
		IDType:      model.IDTypeSerialNumber,
		Description: `tag <b>"bold"</b> & 'quotes'`,
	}
	encoder := &Encoder{}
	data, err := encoder.Drone(record, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	xml := string(data)
	if strings.Contains(xml, "<b>") {
		t.Errorf("raw markup leaked into the document: %s", xml)
	}
	if !strings.Contains(xml, "&lt;b&gt;") {
		t.Errorf("angle brackets not escaped: %s", xml)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Drone.Description != record.Description {
		t.Errorf("description = %q, want %q", decoded.Drone.Description, record.Description)
	}
}

func TestPilotAndHomeCompanionEvents(t *testing.T) {
	record := &model.DroneRecord{
		ID:       "drone-XYZ",
		IDType:   model.IDTypeSerialNumber,
		PilotLat: 37.24,
		PilotLon: -115.74,
		HomeLat:  37.23,
		HomeLon:  -115.73,
	}
	encoder := &Encoder{}

	data, err := encoder.Pilot(record, encodeTime)
	if err != nil {
		t.Fatalf("encode pilot: %v", err)
	}
	if !strings.Contains(string(data), `uid="pilot-drone-XYZ"`) {
		t.Errorf("pilot uid missing: %s", data)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode pilot: %v", err)
	}
	if decoded.Drone == nil || decoded.Drone.ID != "drone-XYZ" {
		t.Fatalf("pilot event did not map back to the base record: %+v", decoded.Drone)
	}
	if decoded.Drone.PilotLat != 37.24 || decoded.Drone.PilotLon != -115.74 {
		t.Errorf("pilot position = %v, %v", decoded.Drone.PilotLat, decoded.Drone.PilotLon)
	}

	data, err = encoder.Home(record, encodeTime)
	if err != nil {
		t.Fatalf("encode home: %v", err)
	}
	decoded, err = Decode(data)
	if err != nil {
		t.Fatalf("decode home: %v", err)
	}
	if decoded.Drone.HomeLat != 37.23 || decoded.Drone.HomeLon != -115.73 {
		t.Errorf("home position = %v, %v", decoded.Drone.HomeLat, decoded.Drone.HomeLon)
	}
}

func TestEncodeStaleWindow(t *testing.T) {
	record := &model.DroneRecord{ID: "drone-XYZ"}
	encoder := &Encoder{StaleAfter: 2 * time.Minute}
	data, err := encoder.Drone(record, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `stale="2026-05-01T14:24:33.000Z"`) {
		t.Errorf("stale attribute not offset by the configured window: %s", data)
	}
	if !strings.Contains(string(data), `time="2026-05-01T14:22:33.000Z"`) {
		t.Errorf("time attribute wrong: %s", data)
	}
}

func TestAircraftEncode(t *testing.T) {
	record := &model.AircraftRecord{
		Hex:          "ae1482",
		Flight:       "RCH401  ",
		Lat:          36.1,
		Lon:          -115.2,
		AltitudeBaro: 11277.6,
		GroundSpeed:  240,
		Track:        185,
		Squawk:       "7700",
		Category:     "A5",
		RSSI:         -12.3,
	}
	encoder := &Encoder{}
	data, err := encoder.Aircraft(record, encodeTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	xml := string(data)
	if !strings.Contains(xml, `uid="adsb-ae1482"`) {
		t.Errorf("uid missing: %s", xml)
	}
	if !strings.Contains(xml, `callsign="RCH401"`) {
		t.Errorf("callsign not trimmed: %s", xml)
	}
	if !strings.Contains(xml, "Squawk: 7700") {
		t.Errorf("squawk remark missing: %s", xml)
	}
}

func TestDecodeCollectorRemarksLine(t *testing.T) {
	// Collector nodes broadcast remarks with the vector fields flat and
	// semicolons separating every pair after the leading MAC/RSSI.
	data := []byte(`<event version="2.0" uid="drone-112624150A90E3AE1EC0" type="a-u-A-M-H-S" time="2026-05-01T14:22:33.000Z" start="2026-05-01T14:22:33.000Z" stale="2026-05-01T14:23:33.000Z" how="m-g">` +
		`<point lat="37.2501234" lon="-115.7509876" hae="312.5" ce="9999999.0" le="9999999.0"/>` +
		`<detail>` +
		`<remarks>MAC: 8e:3b:93:22:33:fa, RSSI: -63dBm; ID Type: Serial Number (ANSI/CTA-2063-A); UA Type: Helicopter or Multirotor (2); Operator ID: TestOperator; Speed: 17.5 m/s; Vert Speed: -1.2 m/s; Direction: 123.4°; Index: 7; Runtime: 120s; Freq: 5785000000.0 Hz; Seen By: wardragon-142; Observed At: 1767200000.5</remarks>` +
		`</detail></event>`)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	drone := decoded.Drone
	if drone == nil {
		t.Fatal("decoded as status, want drone")
	}
	if drone.MAC != "8e:3b:93:22:33:fa" {
		t.Errorf("mac = %q", drone.MAC)
	}
	if drone.RSSI != -63 {
		t.Errorf("rssi = %v, want -63 (pairs after it must not fold into the value)", drone.RSSI)
	}
	if drone.IDType != model.IDTypeSerialNumber {
		t.Errorf("id type = %v, want serial number", drone.IDType)
	}
	if drone.UAType != "Helicopter or Multirotor (2)" {
		t.Errorf("ua type = %q", drone.UAType)
	}
	if drone.OperatorID != "TestOperator" {
		t.Errorf("operator id = %q", drone.OperatorID)
	}
	if drone.Speed != 17.5 || drone.VerticalSpeed != -1.2 || drone.Course != 123.4 {
		t.Errorf("vector = speed %v, vert %v, course %v", drone.Speed, drone.VerticalSpeed, drone.Course)
	}
	if drone.Index != 7 || drone.Runtime != 120 {
		t.Errorf("counters = index %d, runtime %d", drone.Index, drone.Runtime)
	}
	if drone.Frequency != 5785000000 {
		t.Errorf("frequency = %v", drone.Frequency)
	}
	if drone.SeenBy != "wardragon-142" {
		t.Errorf("seen by = %q", drone.SeenBy)
	}
	if drone.ObservedAt != 1767200000.5 {
		t.Errorf("observed at = %v", drone.ObservedAt)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte("not xml")); err == nil {
		t.Error("garbage decoded without error")
	}
	if _, err := Decode([]byte(`<event version="2.0"></event>`)); err == nil {
		t.Error("event without uid decoded without error")
	}
}
