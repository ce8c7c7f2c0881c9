// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"regexp"
	"strings"
)

// ManufacturerEntry maps one vendor to its link-layer address
// prefixes. Prefixes are uppercase colon-free hex.
type ManufacturerEntry struct {
	Vendor   string   `yaml:"vendor"`
	Prefixes []string `yaml:"prefixes"`
}

// ManufacturerTable is an ordered vendor → address-prefix mapping.
// Order matters: the first vendor with a matching prefix wins. The
// table is externally supplied and read-only once constructed.
type ManufacturerTable struct {
	entries []ManufacturerEntry
}

// NewManufacturerTable builds a table from ordered entries, with
// prefixes normalized to uppercase colon-free hex.
func NewManufacturerTable(entries []ManufacturerEntry) *ManufacturerTable {
	table := &ManufacturerTable{entries: make([]ManufacturerEntry, 0, len(entries))}
	for _, entry := range entries {
		normalized := ManufacturerEntry{Vendor: entry.Vendor}
		for _, prefix := range entry.Prefixes {
			normalized.Prefixes = append(normalized.Prefixes, normalizeAddress(prefix))
		}
		table.entries = append(table.entries, normalized)
	}
	return table
}

// DefaultManufacturerTable returns the built-in prefix table used when
// no external mapping is configured.
func DefaultManufacturerTable() *ManufacturerTable {
	return NewManufacturerTable([]ManufacturerEntry{
		{Vendor: "DJI", Prefixes: []string{"34:D2:62", "60:60:1F", "48:1C:B9", "E4:7A:2C"}},
		{Vendor: "Parrot", Prefixes: []string{"90:3A:E6", "A0:14:3D", "00:12:1C", "00:26:7E"}},
		{Vendor: "Autel Robotics", Prefixes: []string{"EC:7C:2C"}},
		{Vendor: "Skydio", Prefixes: []string{"38:1D:14"}},
		{Vendor: "Yuneec", Prefixes: []string{"E0:B6:F5"}},
		{Vendor: "Espressif", Prefixes: []string{"8E:3B:93", "24:6F:28", "30:AE:A4"}},
	})
}

// selfIDAddressPattern extracts a bare link-layer address from
// free-text self-identification, wrapped in the fixed "UAV-" prefix
// and " operational" suffix some airframes broadcast.
var selfIDAddressPattern = regexp.MustCompile(`UAV-((?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}) operational`)

// Lookup resolves a vendor from a link-layer address. The address is
// normalized to uppercase colon-free hex before prefix matching; the
// first matching vendor in table order wins. A miss is not a failure:
// the manufacturer simply stays unset.
func (t *ManufacturerTable) Lookup(mac string) (string, bool) {
	address := normalizeAddress(mac)
	if address == "" {
		return "", false
	}
	for _, entry := range t.entries {
		for _, prefix := range entry.Prefixes {
			if strings.HasPrefix(address, prefix) {
				return entry.Vendor, true
			}
		}
	}
	return "", false
}

// Infer resolves a vendor from the link-layer address, falling back to
// an address extracted from the self-identification text when the
// address is empty.
func (t *ManufacturerTable) Infer(mac, selfIDText string) (string, bool) {
	if mac == "" {
		if match := selfIDAddressPattern.FindStringSubmatch(selfIDText); match != nil {
			mac = match[1]
		}
	}
	return t.Lookup(mac)
}

func normalizeAddress(address string) string {
	address = strings.ToUpper(strings.TrimSpace(address))
	address = strings.ReplaceAll(address, ":", "")
	address = strings.ReplaceAll(address, "-", "")
	return address
}
