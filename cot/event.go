// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package cot

import "encoding/xml"

// Marking-type codes. Drone tracks carry a base code plus an id-type
// suffix (-S serial, -R registration, -U unknown) and an -O suffix when
// the operator location is known.
const (
	droneTypeBase   = "a-u-A-M-H"
	statusType      = "a-f-G-E-S"
	positionType    = "b-m-p-s-m"
	aircraftType    = "a-f-A"
	eventVersion    = "2.0"
	eventHow        = "m-g"
	unknownEllipse  = "9999999.0"
	eventTimeFormat = "2006-01-02T15:04:05.000Z"
)

type event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	How     string   `xml:"how,attr"`
	Point   point    `xml:"point"`
	Detail  detail   `xml:"detail"`
}

type point struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
	HAE string `xml:"hae,attr"`
	CE  string `xml:"ce,attr"`
	LE  string `xml:"le,attr"`
}

type detail struct {
	Contact           *contact           `xml:"contact,omitempty"`
	PrecisionLocation *precisionLocation `xml:"precisionlocation,omitempty"`
	Track             *track             `xml:"track,omitempty"`
	Remarks           string             `xml:"remarks"`
	Color             *color             `xml:"color,omitempty"`
}

type contact struct {
	Callsign string `xml:"callsign,attr"`
}

type precisionLocation struct {
	GeopointSrc string `xml:"geopointsrc,attr"`
	AltSrc      string `xml:"altsrc,attr"`
}

type track struct {
	Course string `xml:"course,attr"`
	Speed  string `xml:"speed,attr"`
}

type color struct {
	ARGB string `xml:"argb,attr"`
}
