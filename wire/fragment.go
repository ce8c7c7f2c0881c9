// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "strings"

// Historically-used key spellings for each sub-object. Different
// firmware generations of the same sensor backend disagree on
// spacing and underscores; all spellings decode identically.
var (
	basicIDKeys    = []string{"Basic ID", "BasicID", "Basic_ID"}
	locationKeys   = []string{"Location/Vector Message", "Location/Vector", "Location Vector Message", "LocationVector"}
	selfIDKeys     = []string{"Self-ID Message", "Self-ID", "SelfID Message", "SelfID"}
	systemKeys     = []string{"System Message", "System"}
	operatorIDKeys = []string{"Operator ID Message", "Operator ID", "OperatorID"}
	authKeys       = []string{"Auth Message", "AuthMessage", "Auth"}
)

// nullIDSentinels are identifier values that mean "no id" on the wire.
var nullIDSentinels = map[string]bool{"": true, "none": true, "null": true}

// BasicID is one identity fragment: a drone identifier plus the type
// of that identifier. One broadcast may carry several competing
// BasicID fragments; see Resolve.
type BasicID struct {
	ID              string
	IDType          string
	UAType          string
	MAC             string
	RSSI            float64
	ProtocolVersion string
}

// Location is the Location/Vector sub-object: position and kinematics.
type Location struct {
	Lat              float64
	Lon              float64
	AltitudeGeodetic float64
	HeightAGL        float64
	Speed            float64
	VerticalSpeed    float64
	Direction        float64
	OpStatus         string
	Timestamp        string
}

// System is the System sub-object: operator and home locations.
type System struct {
	OperatorLat    float64
	OperatorLon    float64
	HomeLat        float64
	HomeLon        float64
	OperatorAltGeo float64
	OperatorID     string
}

// SelfID is the free-text self-identification sub-object.
type SelfID struct {
	Description string
}

// OperatorID is the operator identification sub-object.
type OperatorID struct {
	ID              string
	ProtocolVersion string
}

// Auth is the authentication sub-object, carried opaque.
type Auth struct {
	Type string
	Data string
}

// Registry is backend registry-lookup enrichment.
type Registry struct {
	Make    string
	Model   string
	Source  string
	Matched bool
}

// Telemetry is the collected result of scanning one fragmented or
// single-object drone broadcast. Sub-objects are first-non-nil-wins
// across fragments; Index and Runtime are last-wins.
type Telemetry struct {
	// BasicIDs holds every identity candidate found, in wire order.
	// Resolve selects the authoritative one.
	BasicIDs []BasicID

	Location   *Location
	System     *System
	SelfID     *SelfID
	OperatorID *OperatorID
	Auth       *Auth

	Index   int
	Runtime int

	// Link-layer diagnostics from the sniffer, when present.
	MAC           string
	RSSI          float64
	LinkChannel   int
	PHY           int
	AccessAddress uint32

	// Backend enrichment.
	Frequency  float64
	SeenBy     string
	ObservedAt float64
	Registry   *Registry
}

// absorbFragment scans one fragment object for sub-objects, counters,
// diagnostics, and enrichment. Returns true if anything recognizable
// was found.
func (t *Telemetry) absorbFragment(object map[string]any) bool {
	found := false

	if raw, ok := lookupAny(object, basicIDKeys); ok {
		if id, usable := decodeBasicID(raw); usable {
			t.BasicIDs = append(t.BasicIDs, id)
		}
		found = true
	}
	if raw, ok := lookupAny(object, locationKeys); ok {
		if t.Location == nil {
			t.Location = decodeLocation(raw)
		}
		found = true
	}
	if raw, ok := lookupAny(object, systemKeys); ok {
		if t.System == nil {
			t.System = decodeSystem(raw)
		}
		found = true
	}
	if raw, ok := lookupAny(object, selfIDKeys); ok {
		if t.SelfID == nil {
			t.SelfID = decodeSelfID(raw)
		}
		found = true
	}
	if raw, ok := lookupAny(object, operatorIDKeys); ok {
		if t.OperatorID == nil {
			t.OperatorID = decodeOperatorID(raw)
		}
		found = true
	}
	if raw, ok := lookupAny(object, authKeys); ok {
		if t.Auth == nil {
			t.Auth = decodeAuth(raw)
		}
		found = true
	}

	// Scalar counters: last-wins across fragments.
	if index, ok := asInt(object["index"]); ok {
		t.Index = index
		found = true
	}
	if runtime, ok := asInt(object["runtime"]); ok {
		t.Runtime = runtime
		found = true
	}

	// Link-layer diagnostics appear at the top level of sniffer
	// fragments.
	if mac, ok := asString(object["MAC"]); ok && mac != "" {
		t.MAC = mac
	} else if mac, ok := asString(object["mac"]); ok && mac != "" {
		t.MAC = mac
	}
	if rssi, ok := asFloat(object["rssi"]); ok {
		t.RSSI = rssi
	} else if rssi, ok := asFloat(object["RSSI"]); ok {
		t.RSSI = rssi
	}
	if channel, ok := asInt(object["channel"]); ok {
		t.LinkChannel = channel
	}
	if phy, ok := asInt(object["phy"]); ok {
		t.PHY = phy
	}
	if aa, ok := asFloat(object["aa"]); ok {
		t.AccessAddress = uint32(aa)
	} else if aa, ok := asFloat(object["access_address"]); ok {
		t.AccessAddress = uint32(aa)
	}

	// Backend enrichment fields travel as a bare object appended to
	// the fragment list.
	if freq, ok := asFloat(object["freq"]); ok {
		t.Frequency = freq
		found = true
	}
	if seenBy, ok := asString(object["seen_by"]); ok && seenBy != "" {
		t.SeenBy = seenBy
		found = true
	}
	if observedAt, ok := asFloat(object["observed_at"]); ok {
		t.ObservedAt = observedAt
		found = true
	}
	if raw, isMap := object["rid"].(map[string]any); isMap {
		t.Registry = decodeRegistry(raw)
		found = true
	}

	return found
}

// lookupAny returns the first present spelling's value, provided it is
// an object.
func lookupAny(object map[string]any, keys []string) (map[string]any, bool) {
	for _, key := range keys {
		if raw, ok := object[key]; ok {
			if sub, isMap := raw.(map[string]any); isMap {
				return sub, true
			}
		}
	}
	return nil, false
}

// decodeBasicID extracts one identity candidate. Candidates whose
// identifier is empty or a null sentinel are unusable for identity
// resolution (usable=false), though their link-layer metadata was
// already absorbed at the fragment level when present.
func decodeBasicID(raw map[string]any) (BasicID, bool) {
	var id BasicID
	id.ID, _ = asString(raw["id"])
	id.IDType, _ = asString(raw["id_type"])
	id.UAType, _ = asString(raw["ua_type"])
	if mac, ok := asString(raw["MAC"]); ok && mac != "" {
		id.MAC = mac
	} else if mac, ok := asString(raw["mac"]); ok && mac != "" {
		id.MAC = mac
	}
	if rssi, ok := asFloat(raw["RSSI"]); ok {
		id.RSSI = rssi
	} else if rssi, ok := asFloat(raw["rssi"]); ok {
		id.RSSI = rssi
	}
	id.ProtocolVersion, _ = asString(raw["protocol_version"])

	if nullIDSentinels[strings.ToLower(strings.TrimSpace(id.ID))] {
		return id, false
	}
	return id, true
}

func decodeLocation(raw map[string]any) *Location {
	location := &Location{}
	location.Lat, _ = asFloat(raw["latitude"])
	location.Lon, _ = asFloat(raw["longitude"])
	location.AltitudeGeodetic, _ = asFloat(raw["geodetic_altitude"])
	location.HeightAGL, _ = asFloat(raw["height_agl"])
	location.Speed, _ = asFloat(raw["speed"])
	location.VerticalSpeed, _ = asFloat(raw["vert_speed"])
	location.Direction, _ = asFloat(raw["direction"])
	location.OpStatus, _ = asString(raw["op_status"])
	location.Timestamp, _ = asString(raw["timestamp"])
	return location
}

func decodeSystem(raw map[string]any) *System {
	system := &System{}
	system.OperatorLat, _ = asFloat(raw["operator_lat"])
	system.OperatorLon, _ = asFloat(raw["operator_lon"])
	// Older firmware spells the operator location as the bare
	// latitude/longitude of the System message.
	if system.OperatorLat == 0 {
		system.OperatorLat, _ = asFloat(raw["latitude"])
	}
	if system.OperatorLon == 0 {
		system.OperatorLon, _ = asFloat(raw["longitude"])
	}
	system.HomeLat, _ = asFloat(raw["home_lat"])
	system.HomeLon, _ = asFloat(raw["home_lon"])
	system.OperatorAltGeo, _ = asFloat(raw["operator_alt_geo"])
	system.OperatorID, _ = asString(raw["operator_id"])
	return system
}

func decodeSelfID(raw map[string]any) *SelfID {
	selfID := &SelfID{}
	if description, ok := asString(raw["description"]); ok && description != "" {
		selfID.Description = description
	} else if text, ok := asString(raw["text"]); ok {
		selfID.Description = text
	}
	return selfID
}

func decodeOperatorID(raw map[string]any) *OperatorID {
	operator := &OperatorID{}
	operator.ID, _ = asString(raw["operator_id"])
	operator.ProtocolVersion, _ = asString(raw["protocol_version"])
	return operator
}

func decodeAuth(raw map[string]any) *Auth {
	auth := &Auth{}
	auth.Type, _ = asString(raw["auth_type"])
	auth.Data, _ = asString(raw["data"])
	return auth
}

func decodeRegistry(raw map[string]any) *Registry {
	registry := &Registry{}
	registry.Make, _ = asString(raw["make"])
	registry.Model, _ = asString(raw["model"])
	registry.Source, _ = asString(raw["source"])
	if matched, ok := raw["lookup_success"].(bool); ok {
		registry.Matched = matched
	} else {
		registry.Matched = registry.Make != "" || registry.Model != ""
	}
	return registry
}
