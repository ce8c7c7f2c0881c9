// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package cot

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dragonlink-project/dragonlink/model"
	"github.com/dragonlink-project/dragonlink/wire"
)

// ErrMalformedEvent means an inbound payload was not a parseable
// tactical event. Recoverable: the caller drops it and continues.
var ErrMalformedEvent = errors.New("malformed tactical event")

// Inbound is the result of decoding one tactical event. Exactly one
// field is non-nil.
type Inbound struct {
	Drone  *model.DroneRecord
	Status *model.StatusRecord
}

// rawEvent accumulates the parts of the element tree the decode path
// cares about; everything else is skipped.
type rawEvent struct {
	uid      string
	lat      float64
	lon      float64
	hae      float64
	course   float64
	speed    float64
	hasTrack bool
	remarks  string
}

// Decode parses one tactical XML event with a streaming
// element-by-element scan and routes it by remarks content: the
// CPU-usage marker selects status-record construction, anything else
// builds a drone record.
func Decode(data []byte) (*Inbound, error) {
	raw, err := scanEvent(data)
	if err != nil {
		return nil, err
	}
	if strings.Contains(raw.remarks, statusMarker) {
		return &Inbound{Status: buildStatus(raw)}, nil
	}
	return &Inbound{Drone: buildDrone(raw)}, nil
}

func scanEvent(data []byte) (*rawEvent, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	raw := &rawEvent{}
	sawEvent := false
	inRemarks := false
	var remarks strings.Builder

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "event":
				sawEvent = true
				for _, attr := range element.Attr {
					if attr.Name.Local == "uid" {
						raw.uid = attr.Value
					}
				}
			case "point":
				for _, attr := range element.Attr {
					value, ok := wire.ParseNumber(attr.Value)
					if !ok {
						continue
					}
					switch attr.Name.Local {
					case "lat":
						raw.lat = value
					case "lon":
						raw.lon = value
					case "hae":
						raw.hae = value
					}
				}
			case "track":
				raw.hasTrack = true
				for _, attr := range element.Attr {
					value, ok := wire.ParseNumber(attr.Value)
					if !ok {
						continue
					}
					switch attr.Name.Local {
					case "course":
						raw.course = value
					case "speed":
						raw.speed = value
					}
				}
			case "remarks":
				inRemarks = true
			}
		case xml.CharData:
			if inRemarks {
				remarks.Write(element)
			}
		case xml.EndElement:
			if element.Name.Local == "remarks" {
				inRemarks = false
			}
		}
	}

	if !sawEvent || raw.uid == "" {
		return nil, fmt.Errorf("%w: missing event uid", ErrMalformedEvent)
	}
	raw.remarks = remarks.String()
	return raw, nil
}

// buildDrone constructs a drone record from the scanned event. A
// companion operator/home position event (pilot-/home- uid prefix)
// updates only that location on the base record.
func buildDrone(raw *rawEvent) *model.DroneRecord {
	if base, ok := strings.CutPrefix(raw.uid, "pilot-"); ok {
		return &model.DroneRecord{ID: base, PilotLat: raw.lat, PilotLon: raw.lon}
	}
	if base, ok := strings.CutPrefix(raw.uid, "home-"); ok {
		return &model.DroneRecord{ID: base, HomeLat: raw.lat, HomeLon: raw.lon}
	}

	record := &model.DroneRecord{
		ID:               raw.uid,
		Lat:              raw.lat,
		Lon:              raw.lon,
		AltitudeGeodetic: raw.hae,
	}
	if raw.hasTrack {
		record.Course = raw.course
		record.Speed = raw.speed
	}
	for _, pair := range tokenizeRemarks(raw.remarks) {
		applyDronePair(record, pair)
	}
	return record
}

func applyDronePair(record *model.DroneRecord, pair remarkPair) {
	switch pair.Key {
	case "MAC":
		record.MAC = pair.Value
	case "RSSI":
		record.RSSI = number(pair.Value)
	case "Manufacturer":
		record.Manufacturer = pair.Value
	case "ID Type":
		record.IDType = model.ParseIDType(pair.Value)
	case "CAA Registration":
		record.CAARegistration = pair.Value
	case "Operator ID":
		record.OperatorID = pair.Value
	case "UA Type":
		record.UAType = pair.Value
	case "Self-ID Message: Text", "Text":
		record.Description = pair.Value
	case "Location/Vector":
		applyLocationBlock(record, pair.Value)
	case "System":
		applySystemBlock(record, pair.Value)
	// Collector broadcasts carry the vector fields flat instead of
	// inside a bracketed Location/Vector block.
	case "Speed":
		record.Speed = number(pair.Value)
	case "Vert Speed":
		record.VerticalSpeed = number(pair.Value)
	case "Direction":
		record.Course = number(pair.Value)
	case "Protocol Version":
		record.ProtocolVersion = pair.Value
	case "Channel":
		record.Channel = int(number(pair.Value))
	case "PHY":
		record.PHY = int(number(pair.Value))
	case "AA":
		if aa, err := strconv.ParseUint(pair.Value, 10, 32); err == nil {
			record.AccessAddress = uint32(aa)
		}
	case "Index":
		record.Index = int(number(pair.Value))
	case "Runtime":
		record.Runtime = int(number(pair.Value))
	case "Freq":
		record.Frequency = number(pair.Value)
	case "Seen By":
		record.SeenBy = pair.Value
	case "Observed At":
		record.ObservedAt = number(pair.Value)
	case "RID Make":
		record.RegistryMake = pair.Value
	case "RID Model":
		record.RegistryModel = pair.Value
	case "RID Source":
		record.RegistrySource = pair.Value
	case "RID Matched":
		record.RegistryMatched = pair.Value == "true"
	}
}

func applyLocationBlock(record *model.DroneRecord, block string) {
	for _, pair := range tokenizeRemarks(trimBrackets(block)) {
		switch pair.Key {
		case "Speed":
			record.Speed = number(pair.Value)
		case "Vert Speed":
			record.VerticalSpeed = number(pair.Value)
		case "Geodetic Altitude":
			record.AltitudeGeodetic = number(pair.Value)
		case "Height AGL":
			record.HeightAGL = number(pair.Value)
		case "Direction":
			record.Course = number(pair.Value)
		}
	}
}

func applySystemBlock(record *model.DroneRecord, block string) {
	for _, pair := range tokenizeRemarks(trimBrackets(block)) {
		switch pair.Key {
		case "Operator Lat":
			record.PilotLat = number(pair.Value)
		case "Operator Lon":
			record.PilotLon = number(pair.Value)
		case "Home Lat":
			record.HomeLat = number(pair.Value)
		case "Home Lon":
			record.HomeLon = number(pair.Value)
		}
	}
}

func buildStatus(raw *rawEvent) *model.StatusRecord {
	record := &model.StatusRecord{
		SerialNumber: raw.uid,
		Lat:          raw.lat,
		Lon:          raw.lon,
		Altitude:     raw.hae,
	}
	if raw.hasTrack {
		record.Track = raw.course
		record.Speed = raw.speed
	}
	for _, pair := range tokenizeRemarks(raw.remarks) {
		value := number(pair.Value)
		switch pair.Key {
		case "CPU Usage":
			record.CPUUsage = value
		case "Memory Total":
			record.MemoryTotalMB = value
		case "Memory Available":
			record.MemoryAvailMB = value
		case "Disk Total":
			record.DiskTotalMB = value
		case "Disk Used":
			record.DiskUsedMB = value
		case "Temperature":
			record.TemperatureC = value
		case "Uptime":
			record.UptimeSeconds = value
		case "Pluto Temp":
			record.PlutoTempC = value
		case "Zynq Temp":
			record.ZynqTempC = value
		}
	}
	return record
}

func trimBrackets(s string) string {
	s = strings.TrimPrefix(s, "[")
	return strings.TrimSuffix(s, "]")
}

func number(s string) float64 {
	value, _ := wire.ParseNumber(s)
	return value
}
