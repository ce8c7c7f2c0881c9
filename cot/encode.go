// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package cot

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dragonlink-project/dragonlink/model"
	"github.com/dragonlink-project/dragonlink/wire"
)

// DefaultStaleAfter is how far past the event time an emitted marking
// stays valid on consumer displays.
const DefaultStaleAfter = 10 * time.Minute

// Encoder renders canonical records as tactical-marking XML events.
// The zero value is ready to use.
type Encoder struct {
	// StaleAfter overrides DefaultStaleAfter when non-zero.
	StaleAfter time.Duration
}

func (e *Encoder) staleAfter() time.Duration {
	if e.StaleAfter > 0 {
		return e.StaleAfter
	}
	return DefaultStaleAfter
}

// Drone encodes one drone track event. The marking-type code is
// synthesized from the record's id type plus an -O suffix when the
// operator location is known.
func (e *Encoder) Drone(record *model.DroneRecord, now time.Time) ([]byte, error) {
	ev := e.newEvent(record.ID, droneEventType(record), now)
	ev.Point = newPoint(record.Lat, record.Lon, record.AltitudeGeodetic)
	ev.Detail = detail{
		Contact:           &contact{Callsign: record.ID},
		PrecisionLocation: &precisionLocation{GeopointSrc: "gps", AltSrc: "gps"},
		Remarks:           droneRemarks(record),
		Color:             &color{ARGB: "-256"},
	}
	if record.Course != 0 || record.Speed != 0 {
		ev.Detail.Track = &track{
			Course: formatNumber(record.Course),
			Speed:  formatNumber(record.Speed),
		}
	}
	return marshalEvent(ev)
}

// Pilot encodes the operator-location companion event for a drone
// track. The caller must check HasPilotPosition first.
func (e *Encoder) Pilot(record *model.DroneRecord, now time.Time) ([]byte, error) {
	ev := e.newEvent("pilot-"+record.ID, positionType, now)
	ev.Point = newPoint(record.PilotLat, record.PilotLon, 0)
	ev.Detail = detail{
		Contact: &contact{Callsign: "pilot-" + record.ID},
		Remarks: "Operator location for " + record.ID,
	}
	return marshalEvent(ev)
}

// Home encodes the home/takeoff-location companion event for a drone
// track. The caller must check HasHomePosition first.
func (e *Encoder) Home(record *model.DroneRecord, now time.Time) ([]byte, error) {
	ev := e.newEvent("home-"+record.ID, positionType, now)
	ev.Point = newPoint(record.HomeLat, record.HomeLon, 0)
	ev.Detail = detail{
		Contact: &contact{Callsign: "home-" + record.ID},
		Remarks: "Home location for " + record.ID,
	}
	return marshalEvent(ev)
}

// Status encodes one collector health event. The remarks open with the
// CPU-usage marker the decode path sniffs on.
func (e *Encoder) Status(record *model.StatusRecord, now time.Time) ([]byte, error) {
	ev := e.newEvent(record.SerialNumber, statusType, now)
	ev.Point = newPoint(record.Lat, record.Lon, record.Altitude)
	ev.Detail = detail{
		Contact:           &contact{Callsign: record.SerialNumber},
		PrecisionLocation: &precisionLocation{GeopointSrc: "gps", AltSrc: "gps"},
		Remarks:           statusRemarks(record),
	}
	if record.Track != 0 || record.Speed != 0 {
		ev.Detail.Track = &track{
			Course: formatNumber(record.Track),
			Speed:  formatNumber(record.Speed),
		}
	}
	return marshalEvent(ev)
}

// Aircraft encodes one transponder-equipped aircraft track.
func (e *Encoder) Aircraft(record *model.AircraftRecord, now time.Time) ([]byte, error) {
	callsign := strings.TrimSpace(record.Flight)
	if callsign == "" {
		callsign = strings.ToUpper(record.Hex)
	}
	ev := e.newEvent("adsb-"+record.Hex, aircraftType, now)
	ev.Point = newPoint(record.Lat, record.Lon, record.AltitudeBaro)
	ev.Detail = detail{
		Contact: &contact{Callsign: callsign},
		Remarks: aircraftRemarks(record),
	}
	if record.Track != 0 || record.GroundSpeed != 0 {
		ev.Detail.Track = &track{
			Course: formatNumber(record.Track),
			Speed:  formatNumber(record.GroundSpeed),
		}
	}
	return marshalEvent(ev)
}

func (e *Encoder) newEvent(uid, eventType string, now time.Time) *event {
	stamp := now.UTC().Format(eventTimeFormat)
	return &event{
		Version: eventVersion,
		UID:     uid,
		Type:    eventType,
		Time:    stamp,
		Start:   stamp,
		Stale:   now.UTC().Add(e.staleAfter()).Format(eventTimeFormat),
		How:     eventHow,
	}
}

func newPoint(lat, lon, hae float64) point {
	return point{
		Lat: wire.FormatCoordinate(lat),
		Lon: wire.FormatCoordinate(lon),
		HAE: wire.FormatCoordinate(hae),
		CE:  unknownEllipse,
		LE:  unknownEllipse,
	}
}

func marshalEvent(ev *event) ([]byte, error) {
	body, err := xml.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", ev.UID, err)
	}
	return append([]byte(xml.Header), body...), nil
}

// droneEventType synthesizes the marking-type code for a drone track.
func droneEventType(record *model.DroneRecord) string {
	code := droneTypeBase
	switch record.IDType {
	case model.IDTypeSerialNumber:
		code += "-S"
	case model.IDTypeCAARegistration:
		code += "-R"
	default:
		code += "-U"
	}
	if record.HasPilotPosition() {
		code += "-O"
	}
	return code
}

// droneRemarks builds the drone remarks text. Key order is fixed;
// pairs with unset values are skipped so the emitted order is stable
// for a given record.
func droneRemarks(record *model.DroneRecord) string {
	b := &remarksBuilder{}
	b.add("MAC", record.MAC)
	b.addNumber("RSSI", record.RSSI, "dBm")
	b.add("Manufacturer", record.Manufacturer)
	if record.IDType != model.IDTypeUnknown {
		b.add("ID Type", record.IDType.String())
	}
	b.add("CAA Registration", record.CAARegistration)
	b.add("Operator ID", record.OperatorID)
	b.add("UA Type", record.UAType)
	b.add("Self-ID Message: Text", record.Description)
	if record.Speed != 0 || record.VerticalSpeed != 0 || record.AltitudeGeodetic != 0 ||
		record.HeightAGL != 0 || record.Course != 0 {
		b.add("Location/Vector", "["+locationBlock(record)+"]")
	}
	if record.HasPilotPosition() || record.HasHomePosition() {
		b.add("System", "["+systemBlock(record)+"]")
	}
	b.add("Protocol Version", record.ProtocolVersion)
	b.addInt("Channel", record.Channel)
	b.addInt("PHY", record.PHY)
	if record.AccessAddress != 0 {
		b.add("AA", strconv.FormatUint(uint64(record.AccessAddress), 10))
	}
	b.addInt("Index", record.Index)
	b.addInt("Runtime", record.Runtime)
	b.addNumber("Freq", record.Frequency, "Hz")
	b.add("Seen By", record.SeenBy)
	b.addNumber("Observed At", record.ObservedAt, "")
	b.add("RID Make", record.RegistryMake)
	b.add("RID Model", record.RegistryModel)
	b.add("RID Source", record.RegistrySource)
	if record.RegistryMatched {
		b.add("RID Matched", "true")
	}
	return b.String()
}

// locationBlock renders the kinematics sub-block. The inner shape is
// fixed: all five pairs are always present so consumers can pattern
// match on it.
func locationBlock(record *model.DroneRecord) string {
	b := &remarksBuilder{}
	b.add("Speed", formatNumber(record.Speed)+" m/s")
	b.add("Vert Speed", formatNumber(record.VerticalSpeed)+" m/s")
	b.add("Geodetic Altitude", formatNumber(record.AltitudeGeodetic)+" m")
	b.add("Height AGL", formatNumber(record.HeightAGL)+" m")
	b.add("Direction", formatNumber(record.Course))
	return b.String()
}

// systemBlock renders the operator/home sub-block, fixed shape.
func systemBlock(record *model.DroneRecord) string {
	b := &remarksBuilder{}
	b.add("Operator Lat", wire.FormatCoordinate(record.PilotLat))
	b.add("Operator Lon", wire.FormatCoordinate(record.PilotLon))
	b.add("Home Lat", wire.FormatCoordinate(record.HomeLat))
	b.add("Home Lon", wire.FormatCoordinate(record.HomeLon))
	return b.String()
}

func statusRemarks(record *model.StatusRecord) string {
	b := &remarksBuilder{}
	b.add("CPU Usage", formatNumber(record.CPUUsage)+"%")
	b.addNumber("Memory Total", record.MemoryTotalMB, "MB")
	b.addNumber("Memory Available", record.MemoryAvailMB, "MB")
	b.addNumber("Disk Total", record.DiskTotalMB, "MB")
	b.addNumber("Disk Used", record.DiskUsedMB, "MB")
	b.addNumber("Temperature", record.TemperatureC, "°C")
	b.addNumber("Uptime", record.UptimeSeconds, "seconds")
	b.addNumber("Pluto Temp", record.PlutoTempC, "°C")
	b.addNumber("Zynq Temp", record.ZynqTempC, "°C")
	return b.String()
}

func aircraftRemarks(record *model.AircraftRecord) string {
	b := &remarksBuilder{}
	b.add("Flight", strings.TrimSpace(record.Flight))
	b.add("Squawk", record.Squawk)
	b.add("Category", record.Category)
	b.addNumber("RSSI", record.RSSI, "dBm")
	b.addNumber("Vertical Rate", record.VerticalRate, "")
	return b.String()
}
