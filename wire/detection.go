// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"strings"
)

// Detection is a synthetic emitter sighting: a video-transmitter
// detection or a short-range serial alert. Detections have no
// Remote-ID identity; the key is derived deterministically from the
// reporting source and the emitter frequency so repeated detections
// of the same emitter collapse into one record.
type Detection struct {
	// Key is the canonical record id, e.g. "drone-fpv-01-97e8-5785".
	Key string

	Source       string
	DeviceType   string
	FrequencyMHz float64
	Bandwidth    string
	RSSI         float64
	DistanceM    float64
	Status       string
	Timestamp    string
}

// controlMessageTypes are serial-alert message types emitted during
// sensor startup and tuning. They carry no emitter information and
// are discarded.
var controlMessageTypes = map[string]bool{
	"boot":        true,
	"calibration": true,
	"heartbeat":   true,
}

// decodeDetectionEnvelope recognizes the nested detection shapes:
//
//   - an "FPV Detection" envelope keyed by timestamp, frequency, and
//     signal fields,
//   - an "AUX_ADV_IND" lock update with the source in the aext
//     advertiser address,
//   - a raw serial alert keyed by from/to/msg sub-objects with a
//     message_type tag.
//
// ok reports whether the object is one of these shapes; discard
// reports a recognized boot/calibration control message that carries
// nothing actionable.
func decodeDetectionEnvelope(object map[string]any) (detection *Detection, ok bool, discard bool) {
	if raw, isMap := object["FPV Detection"].(map[string]any); isMap {
		return decodeFPVDetection(raw), true, false
	}
	if raw, isMap := object["AUX_ADV_IND"].(map[string]any); isMap {
		return decodeLockUpdate(object, raw), true, false
	}
	if detection, discard, isAlert := decodeSerialAlert(object); isAlert {
		return detection, true, discard
	}
	return nil, false, false
}

func decodeFPVDetection(raw map[string]any) *Detection {
	detection := &Detection{}
	detection.Timestamp, _ = asString(raw["timestamp"])
	detection.DeviceType, _ = asString(raw["device_type"])
	detection.FrequencyMHz, _ = asFloat(raw["frequency"])
	detection.Bandwidth, _ = asString(raw["bandwidth"])
	detection.RSSI, _ = asFloat(raw["signal_strength"])
	detection.DistanceM, _ = asFloat(raw["estimated_distance"])
	detection.Source, _ = asString(raw["detection_source"])
	if detection.Source == "" {
		detection.Source, _ = asString(raw["manufacturer"])
	}

	status, _ := asString(raw["status"])
	if status == "" {
		status = "CONTACT"
	}
	detection.Status = status
	detection.Key = detectionKey(detection.Source, detection.FrequencyMHz)
	return detection
}

// decodeLockUpdate handles the ongoing signal-strength updates emitted
// after an initial video-transmitter lock. The source rides in the
// extended-advertisement address, suffixed with the address type.
func decodeLockUpdate(object, raw map[string]any) *Detection {
	detection := &Detection{}
	detection.RSSI, _ = asFloat(raw["rssi"])
	detection.Timestamp, _ = asString(raw["time"])
	detection.FrequencyMHz, _ = asFloat(object["frequency"])
	detection.DistanceM, _ = asFloat(object["distance"])

	if aext, isMap := object["aext"].(map[string]any); isMap {
		advertiser, _ := asString(aext["AdvA"])
		// "01-97e8 random" → "01-97e8"
		detection.Source, _, _ = strings.Cut(advertiser, " ")
	}
	detection.Status = "LOCK UPDATE"
	detection.Key = detectionKey(detection.Source, detection.FrequencyMHz)
	return detection
}

// decodeSerialAlert handles the short-range serial alert envelope:
// from/to/msg sub-objects with a fixed message_type tag inside msg.
func decodeSerialAlert(object map[string]any) (detection *Detection, discard, isAlert bool) {
	from, hasFrom := object["from"].(map[string]any)
	_, hasTo := object["to"].(map[string]any)
	msg, hasMsg := object["msg"].(map[string]any)
	if !hasFrom || !hasTo || !hasMsg {
		return nil, false, false
	}

	messageType, _ := asString(msg["message_type"])
	if controlMessageTypes[strings.ToLower(messageType)] {
		return nil, true, true
	}

	detection = &Detection{}
	detection.Source, _ = asString(from["id"])
	detection.FrequencyMHz, _ = asFloat(msg["frequency"])
	detection.RSSI, _ = asFloat(msg["rssi"])
	detection.Timestamp, _ = asString(msg["timestamp"])
	detection.DeviceType, _ = asString(msg["device"])
	if messageType != "" {
		detection.Status = strings.ToUpper(messageType)
	} else {
		detection.Status = "ALERT"
	}
	detection.Key = detectionKey(detection.Source, detection.FrequencyMHz)
	return detection, false, true
}

// detectionKey builds the deterministic record id for an emitter.
// Source separators are normalized so the key is filesystem- and
// uid-safe.
func detectionKey(source string, frequencyMHz float64) string {
	normalized := strings.ToLower(strings.TrimSpace(source))
	normalized = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, normalized)
	if normalized == "" {
		normalized = "unknown"
	}
	return fmt.Sprintf("drone-fpv-%s-%d", normalized, int(frequencyMHz))
}
