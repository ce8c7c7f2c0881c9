// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dragonlink.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Ingest.TelemetryEndpoint != "tcp://127.0.0.1:4224" {
		t.Errorf("telemetry endpoint default = %q", loaded.Ingest.TelemetryEndpoint)
	}
	if loaded.Ingest.PollInterval.Std() != 100*time.Millisecond {
		t.Errorf("poll interval default = %v", loaded.Ingest.PollInterval.Std())
	}
	if loaded.Output.Protocol != "tcp" || loaded.Output.DroneInterval.Std() != time.Second {
		t.Errorf("output defaults = %q, %v", loaded.Output.Protocol, loaded.Output.DroneInterval.Std())
	}
	if loaded.Output.AircraftInterval.Std() != 3*time.Second {
		t.Errorf("aircraft interval default = %v", loaded.Output.AircraftInterval.Std())
	}
	if loaded.Logging.Level != "info" || loaded.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", loaded.Logging)
	}
}

func TestLoadParsesDurationsAndSections(t *testing.T) {
	path := writeConfig(t, `
ingest:
  telemetry_endpoint: tcp://10.0.0.5:4224
  poll_interval: 250ms
  background_poll_interval: 2s
output:
  protocol: udp
  address: 10.0.0.9:8087
  stale_after: 5m
adsb:
  enabled: true
  url: http://127.0.0.1:8080/data/aircraft.json
  poll_interval: 2s
manufacturers:
  - vendor: DJI
    prefixes: ["34:D2:62"]
`)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Ingest.PollInterval.Std() != 250*time.Millisecond {
		t.Errorf("poll interval = %v", loaded.Ingest.PollInterval.Std())
	}
	if loaded.Output.StaleAfter.Std() != 5*time.Minute {
		t.Errorf("stale after = %v", loaded.Output.StaleAfter.Std())
	}
	if len(loaded.Manufacturers) != 1 || loaded.Manufacturers[0].Vendor != "DJI" {
		t.Errorf("manufacturers = %+v", loaded.Manufacturers)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"unknown protocol", "output:\n  protocol: smoke-signals\n"},
		{"tls without certs", "output:\n  protocol: tls\n"},
		{"adsb without url", "adsb:\n  enabled: true\n"},
		{"bad log level", "logging:\n  level: shout\n"},
		{"bad duration", "ingest:\n  poll_interval: fast\n"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: accepted", tc.name)
		}
	}
}
