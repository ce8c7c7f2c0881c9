// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package cot

import (
	"strconv"
	"strings"
)

// statusMarker is the literal that routes an inbound event to
// status-record construction instead of drone-record construction.
const statusMarker = "CPU Usage:"

// remarkKeys is the complete key vocabulary of the remarks grammar, in
// match order. A compound key that shares a prefix with a shorter key
// must appear before it: "Self-ID Message: Text" would otherwise be
// split at its first colon and mis-read as a bare "Text" pair.
var remarkKeys = []string{
	"Self-ID Message: Text",
	"Location/Vector",
	"System",
	"CAA Registration",
	"Operator Lat",
	"Operator Lon",
	"Operator ID",
	"Home Lat",
	"Home Lon",
	"ID Type",
	"UA Type",
	"Manufacturer",
	"MAC",
	"RSSI",
	"Text",
	"Protocol Version",
	"Channel",
	"PHY",
	"AA",
	"Index",
	"Runtime",
	"Freq",
	"Seen By",
	"Observed At",
	"RID Make",
	"RID Model",
	"RID Source",
	"RID Matched",
	"CPU Usage",
	"Memory Total",
	"Memory Available",
	"Disk Total",
	"Disk Used",
	"Temperature",
	"Uptime",
	"Pluto Temp",
	"Zynq Temp",
	"Speed",
	"Vert Speed",
	"Geodetic Altitude",
	"Height AGL",
	"Direction",
	"Flight",
	"Squawk",
	"Category",
	"Vertical Rate",
}

// remarkPair is one "Key: value" element of the remarks text, in
// document order.
type remarkPair struct {
	Key   string
	Value string
}

// blockMarkers are the two sub-blocks whose bracketed values contain
// the outer pair delimiter. They are pulled out and replaced with
// placeholders before the outer split, then restored into the value.
var blockMarkers = []string{"Location/Vector: [", "System: ["}

const placeholderRune = "\x00"

// tokenizeRemarks parses remarks free text into an ordered list of
// (key, value) pairs. The outer delimiter is ", " or ";": the encoder
// joins with ", ", but collector broadcasts separate most pairs with
// semicolons, and both styles can appear in one line. Unknown keys are
// kept (the caller ignores them); text that contains no colon at all
// yields a pair with an empty value.
func tokenizeRemarks(text string) []remarkPair {
	var blocks []string
	for _, marker := range blockMarkers {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		open := start + len(marker)
		length := strings.Index(text[open:], "]")
		if length < 0 {
			continue
		}
		placeholder := placeholderRune + strconv.Itoa(len(blocks)) + placeholderRune
		blocks = append(blocks, text[open:open+length])
		text = text[:open] + placeholder + text[open+length:]
	}

	var pairs []remarkPair
	for _, token := range splitTokens(text) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, value := splitPair(token)
		for i, block := range blocks {
			placeholder := placeholderRune + strconv.Itoa(i) + placeholderRune
			value = strings.Replace(value, placeholder, block, 1)
		}
		pairs = append(pairs, remarkPair{Key: key, Value: value})
	}
	return pairs
}

// splitTokens cuts the remarks text at every semicolon and every
// ", " sequence. A bare comma without a following space stays inside
// its value (coordinates inside block values never reach this split;
// they are placeholdered out first).
func splitTokens(text string) []string {
	var tokens []string
	for _, segment := range strings.Split(text, ";") {
		tokens = append(tokens, strings.Split(segment, ", ")...)
	}
	return tokens
}

// splitPair separates one token into key and value. Known keys are
// matched by literal prefix in remarkKeys order; an unknown token is
// split at its first colon.
func splitPair(token string) (string, string) {
	for _, key := range remarkKeys {
		if rest, ok := strings.CutPrefix(token, key+": "); ok {
			return key, rest
		}
		if token == key+":" {
			return key, ""
		}
	}
	if idx := strings.Index(token, ": "); idx >= 0 {
		return token[:idx], token[idx+2:]
	}
	return strings.TrimSuffix(token, ":"), ""
}

// remarksBuilder assembles the ordered, comma-joined remarks text.
// Pairs are appended only when their value is present, so the emitted
// key order is stable for a given input.
type remarksBuilder struct {
	parts []string
}

func (b *remarksBuilder) add(key, value string) {
	if value == "" {
		return
	}
	b.parts = append(b.parts, key+": "+value)
}

// addNumber formats a non-zero value with round-trip precision and an
// optional unit suffix. Zero is the "unset" sentinel throughout the
// canonical records, so it is never emitted.
func (b *remarksBuilder) addNumber(key string, value float64, unit string) {
	if value == 0 {
		return
	}
	s := formatNumber(value)
	if unit != "" {
		s += " " + unit
	}
	b.add(key, s)
}

func (b *remarksBuilder) addInt(key string, value int) {
	if value == 0 {
		return
	}
	b.add(key, strconv.Itoa(value))
}

func (b *remarksBuilder) String() string {
	return strings.Join(b.parts, ", ")
}

// formatNumber renders a float with the minimal digits that parse back
// to the identical value.
func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
