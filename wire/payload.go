// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"errors"
)

// Channel identifies which inbound subscription a payload arrived on.
type Channel int

const (
	// ChannelTelemetry carries drone broadcasts and detections.
	ChannelTelemetry Channel = iota
	// ChannelStatus carries collector health reports.
	ChannelStatus
)

func (c Channel) String() string {
	if c == ChannelStatus {
		return "status"
	}
	return "telemetry"
}

// Decoding errors. Both are recoverable: the caller drops the message
// and continues.
var (
	// ErrMalformedPayload means the payload was not valid JSON.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnrecognizedFormat means the payload was valid JSON but
	// matched no known shape. Log warnings for it should be rate
	// limited: a misconfigured upstream can emit these continuously.
	ErrUnrecognizedFormat = errors.New("unrecognized payload format")
)

// Kind tags the variant held by a Decoded payload.
type Kind int

const (
	// KindNone means the payload was recognized but carried nothing
	// actionable (e.g. a partial beacon fragment with no usable
	// Basic-ID, or a discarded control message). Expected in normal
	// operation; not an error.
	KindNone Kind = iota

	// KindTelemetry is a drone broadcast: one or more fragments
	// carrying Basic-ID, Location/Vector, System, Self-ID,
	// Operator-ID, or Auth sub-objects.
	KindTelemetry

	// KindDetection is a synthetic emitter detection (video
	// transmitter or short-range serial alert) with a deterministic
	// key derived from source and frequency.
	KindDetection

	// KindStatus is a collector health report.
	KindStatus
)

// Decoded is the tagged-variant result of classifying one payload.
// Exactly one of Telemetry, Detection, or Status is non-nil, matching
// Kind.
type Decoded struct {
	Kind      Kind
	Telemetry *Telemetry
	Detection *Detection
	Status    *StatusReport
}

// Decode classifies and parses one raw payload from the given channel.
// Classification order, first match wins:
//
//  1. a JSON array of fragment objects (fragmented multi-message
//     format),
//  2. a single object containing a nested detection envelope,
//  3. a single object carrying Basic-ID directly,
//  4. anything else fails with ErrUnrecognizedFormat.
//
// Status-channel payloads decode as collector health reports instead.
func Decode(payload []byte, channel Channel) (*Decoded, error) {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, ErrMalformedPayload
	}

	if channel == ChannelStatus {
		object, ok := value.(map[string]any)
		if !ok {
			return nil, ErrUnrecognizedFormat
		}
		report, ok := decodeStatusReport(object)
		if !ok {
			return nil, ErrUnrecognizedFormat
		}
		return &Decoded{Kind: KindStatus, Status: report}, nil
	}

	switch v := value.(type) {
	case []any:
		return decodeFragmentList(v)
	case map[string]any:
		if detection, ok, discard := decodeDetectionEnvelope(v); ok {
			if discard {
				return &Decoded{Kind: KindNone}, nil
			}
			return &Decoded{Kind: KindDetection, Detection: detection}, nil
		}
		return decodeSingleObject(v)
	default:
		return nil, ErrUnrecognizedFormat
	}
}

// decodeFragmentList handles the fragmented multi-message format: a
// list of objects each carrying at most one sub-object. The whole
// list is scanned; sub-objects are collected first-non-nil-wins,
// scalar counters last-wins. Every Basic-ID fragment is kept as an
// identity candidate because the list may interleave competing
// beacons (a MAC-only beacon and a full serial beacon).
func decodeFragmentList(fragments []any) (*Decoded, error) {
	telemetry := &Telemetry{}
	sawFragment := false
	for _, element := range fragments {
		object, ok := element.(map[string]any)
		if !ok {
			continue
		}
		// Video-transmitter receivers publish their envelope wrapped
		// in a one-element list; a detection short-circuits fragment
		// collection.
		if detection, isDetection, discard := decodeDetectionEnvelope(object); isDetection {
			if discard {
				return &Decoded{Kind: KindNone}, nil
			}
			return &Decoded{Kind: KindDetection, Detection: detection}, nil
		}
		if telemetry.absorbFragment(object) {
			sawFragment = true
		}
	}
	if !sawFragment {
		return nil, ErrUnrecognizedFormat
	}
	return &Decoded{Kind: KindTelemetry, Telemetry: telemetry}, nil
}

// decodeSingleObject handles a single object carrying Basic-ID
// directly alongside the other sub-objects. A missing, empty, or
// null-sentinel Basic-ID is expected for partial beacon fragments and
// decodes to KindNone rather than an error.
func decodeSingleObject(object map[string]any) (*Decoded, error) {
	telemetry := &Telemetry{}
	if !telemetry.absorbFragment(object) {
		return nil, ErrUnrecognizedFormat
	}
	if len(telemetry.BasicIDs) == 0 {
		return &Decoded{Kind: KindNone}, nil
	}
	return &Decoded{Kind: KindTelemetry, Telemetry: telemetry}, nil
}
