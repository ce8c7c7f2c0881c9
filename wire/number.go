// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strconv"
	"strings"
)

// unitSuffixes are the unit labels sensor backends append to numeric
// values encoded as strings (e.g. "123.4 m", "-60dBm", "5785MHz").
// Longer suffixes are listed before their prefixes so the most
// specific match is stripped.
var unitSuffixes = []string{
	"m/s", "MHz", "GHz", "kHz", "Hz", "dBm", "dB",
	"MB", "KB", "GB", "°C", "°", "%", "seconds", "sec", "ms", "s", "m", "ft",
}

// asFloat coerces a dynamically-typed JSON value to a float64. Numbers
// pass through; strings are parsed after trimming whitespace and any
// known unit suffix. Returns false for values that are absent, empty,
// or not numeric.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return parseNumericString(v)
	default:
		return 0, false
	}
}

// asInt coerces a dynamically-typed JSON value to an int, with the
// same string and unit tolerance as asFloat.
func asInt(value any) (int, bool) {
	f, ok := asFloat(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// asString coerces a JSON value to a trimmed string. Numeric values
// are formatted with enough precision to round-trip.
func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, suffix := range unitSuffixes {
		if trimmed, ok := strings.CutSuffix(s, suffix); ok {
			s = strings.TrimSpace(trimmed)
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseNumber parses a numeric string with the same unit-suffix
// tolerance the decoder applies to inbound JSON ("17.5 m/s", "-63dBm").
func ParseNumber(s string) (float64, bool) {
	return parseNumericString(s)
}

// FormatCoordinate renders a coordinate or altitude with 7 fractional
// digits, enough precision for a lossless round-trip through the wire
// format.
func FormatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', 7, 64)
}
