// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dragonlink-project/dragonlink/wire"
)

// Duration wraps time.Duration for YAML fields written in Go duration
// syntax ("100ms", "3s", "10m").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the master daemon configuration.
type Config struct {
	// Ingest configures the two inbound subscriptions and the
	// multicast listener.
	Ingest IngestConfig `yaml:"ingest"`

	// ADSB configures the transponder-aircraft poller.
	ADSB ADSBConfig `yaml:"adsb"`

	// Output configures the outbound tactical-event destination.
	Output OutputConfig `yaml:"output"`

	// Control configures the local operator socket.
	Control ControlConfig `yaml:"control"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`

	// Manufacturers overrides the built-in vendor prefix table when
	// non-empty.
	Manufacturers []wire.ManufacturerEntry `yaml:"manufacturers,omitempty"`
}

// IngestConfig configures inbound sources.
type IngestConfig struct {
	// TelemetryEndpoint is the drone-telemetry subscription endpoint
	// (e.g. "tcp://127.0.0.1:4224").
	TelemetryEndpoint string `yaml:"telemetry_endpoint"`

	// StatusEndpoint is the collector-status subscription endpoint.
	StatusEndpoint string `yaml:"status_endpoint"`

	// MulticastGroup is the inbound tactical-XML multicast address
	// ("group:port"). Empty disables the listener.
	MulticastGroup string `yaml:"multicast_group"`

	// MulticastInterface pins the multicast join to one interface
	// name. Empty lets the kernel choose.
	MulticastInterface string `yaml:"multicast_interface,omitempty"`

	// PollInterval bounds how long the worker blocks waiting for
	// inbound traffic before checking for control requests.
	PollInterval Duration `yaml:"poll_interval"`

	// BackgroundPollInterval replaces PollInterval while the process
	// is backgrounded, trading latency for power.
	BackgroundPollInterval Duration `yaml:"background_poll_interval"`
}

// ADSBConfig configures the aircraft.json poller.
type ADSBConfig struct {
	// Enabled turns the poller on.
	Enabled bool `yaml:"enabled"`

	// URL is the readsb-compatible endpoint, usually ending in
	// /data/aircraft.json.
	URL string `yaml:"url"`

	// PollInterval is how often the endpoint is fetched.
	PollInterval Duration `yaml:"poll_interval"`
}

// OutputConfig configures the outbound destination.
type OutputConfig struct {
	// Protocol is "tcp", "tls", or "udp".
	Protocol string `yaml:"protocol"`

	// Address is the destination host:port.
	Address string `yaml:"address"`

	// CertFile/KeyFile/CAFile supply the TLS client identity. Required
	// for the tls protocol.
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`

	// ServerName overrides the TLS server name.
	ServerName string `yaml:"server_name,omitempty"`

	// StaleAfter is the validity window stamped on emitted events.
	StaleAfter Duration `yaml:"stale_after"`

	// DroneInterval and AircraftInterval are the per-track minimum
	// emit intervals.
	DroneInterval    Duration `yaml:"drone_interval"`
	AircraftInterval Duration `yaml:"aircraft_interval"`
}

// ControlConfig configures the operator control socket.
type ControlConfig struct {
	// SocketPath is the Unix socket the CLI talks to.
	SocketPath string `yaml:"socket_path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the HTTP endpoint on.
	Enabled bool `yaml:"enabled"`

	// Listen is the bind address for /metrics.
	Listen string `yaml:"listen"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`

	// File routes logs to a rotated file instead of stderr when set.
	File string `yaml:"file,omitempty"`

	// Rotation bounds, used only when File is set.
	MaxSizeMB  int `yaml:"max_size_mb,omitempty"`
	MaxBackups int `yaml:"max_backups,omitempty"`
	MaxAgeDays int `yaml:"max_age_days,omitempty"`
}

// Load reads, defaults, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// ApplyDefaults fills omitted fields with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Ingest.TelemetryEndpoint == "" {
		c.Ingest.TelemetryEndpoint = "tcp://127.0.0.1:4224"
	}
	if c.Ingest.StatusEndpoint == "" {
		c.Ingest.StatusEndpoint = "tcp://127.0.0.1:4225"
	}
	if c.Ingest.PollInterval == 0 {
		c.Ingest.PollInterval = Duration(100 * time.Millisecond)
	}
	if c.Ingest.BackgroundPollInterval == 0 {
		c.Ingest.BackgroundPollInterval = Duration(time.Second)
	}
	if c.ADSB.PollInterval == 0 {
		c.ADSB.PollInterval = Duration(time.Second)
	}
	if c.Output.Protocol == "" {
		c.Output.Protocol = "tcp"
	}
	if c.Output.Address == "" {
		c.Output.Address = "127.0.0.1:8087"
	}
	if c.Output.StaleAfter == 0 {
		c.Output.StaleAfter = Duration(10 * time.Minute)
	}
	if c.Output.DroneInterval == 0 {
		c.Output.DroneInterval = Duration(time.Second)
	}
	if c.Output.AircraftInterval == 0 {
		c.Output.AircraftInterval = Duration(3 * time.Second)
	}
	if c.Control.SocketPath == "" {
		c.Control.SocketPath = "/run/dragonlink/control.sock"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9188"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Output.Protocol {
	case "tcp", "udp":
	case "tls":
		if c.Output.CertFile == "" || c.Output.KeyFile == "" {
			return errors.New("output: tls protocol requires cert_file and key_file")
		}
	default:
		return fmt.Errorf("output: unknown protocol %q", c.Output.Protocol)
	}
	if c.ADSB.Enabled && c.ADSB.URL == "" {
		return errors.New("adsb: enabled without url")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}
