// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dragonlink-project/dragonlink/lib/clock"
	"github.com/dragonlink-project/dragonlink/model"
)

const (
	feetToMeters          = 0.3048
	knotsToMetersPerSec   = 0.514444
	feetPerMinToMetersSec = 0.3048 / 60
)

// maxResponseSize caps the aircraft.json body. A busy receiver tops out
// well under a megabyte.
const maxResponseSize = 8 << 20

// Poller fetches aircraft.json on a fixed interval and delivers each
// poll's aircraft as one batch.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	clock    clock.Clock
	logger   *slog.Logger
}

// NewPoller prepares a poller for the given aircraft.json URL.
func NewPoller(url string, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Poller {
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		clock:    clk,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. Fetch and decode failures are
// logged and the next tick tries again; the receiver restarting must
// not take the bridge down with it.
func (p *Poller) Run(ctx context.Context, out chan<- []model.AircraftRecord) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		batch, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("aircraft poll failed", "url", p.url, "error", err)
		} else if len(batch) > 0 {
			select {
			case out <- batch:
			case <-ctx.Done():
				return nil
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]model.AircraftRecord, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	response, err := p.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", p.url, response.Status)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return ParseAircraft(body)
}

// feed is the aircraft.json document shape.
type feed struct {
	Aircraft []feedAircraft `json:"aircraft"`
}

type feedAircraft struct {
	Hex      string     `json:"hex"`
	Flight   string     `json:"flight"`
	AltBaro  flexNumber `json:"alt_baro"`
	GS       flexNumber `json:"gs"`
	Track    flexNumber `json:"track"`
	BaroRate flexNumber `json:"baro_rate"`
	Lat      flexNumber `json:"lat"`
	Lon      flexNumber `json:"lon"`
	Squawk   string     `json:"squawk"`
	Category string     `json:"category"`
	RSSI     flexNumber `json:"rssi"`
}

// flexNumber tolerates readsb's mixed numeric encodings: plain numbers,
// quoted numbers, and the literal "ground" for on-ground altitude.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	if trimmed == "" || trimmed == "null" || trimmed == "ground" {
		*n = 0
		return nil
	}
	var value float64
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return fmt.Errorf("numeric field %q: %w", trimmed, err)
	}
	*n = flexNumber(value)
	return nil
}

// ParseAircraft decodes one aircraft.json document into records.
// Entries without a hex address are skipped.
func ParseAircraft(body []byte) ([]model.AircraftRecord, error) {
	var document feed
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("aircraft.json: %w", err)
	}
	records := make([]model.AircraftRecord, 0, len(document.Aircraft))
	for _, entry := range document.Aircraft {
		hex := strings.ToLower(strings.TrimSpace(entry.Hex))
		if hex == "" {
			continue
		}
		records = append(records, model.AircraftRecord{
			Hex:          hex,
			Flight:       strings.TrimSpace(entry.Flight),
			Lat:          float64(entry.Lat),
			Lon:          float64(entry.Lon),
			AltitudeBaro: float64(entry.AltBaro) * feetToMeters,
			GroundSpeed:  float64(entry.GS) * knotsToMetersPerSec,
			Track:        float64(entry.Track),
			VerticalRate: float64(entry.BaroRate) * feetPerMinToMetersSec,
			Squawk:       entry.Squawk,
			Category:     entry.Category,
			RSSI:         float64(entry.RSSI),
		})
	}
	return records, nil
}
