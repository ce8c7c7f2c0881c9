// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"time"

	"github.com/zeebo/blake3"

	"github.com/dragonlink-project/dragonlink/lib/clock"
)

const (
	// DefaultStatusWindow is how long a byte-identical status
	// re-broadcast stays suppressed.
	DefaultStatusWindow = time.Second

	// DefaultStatusKeys bounds the number of collectors tracked at
	// once. The oldest entry is evicted beyond that.
	DefaultStatusKeys = 10
)

type statusEntry struct {
	sum       [32]byte
	emittedAt time.Time
}

// StatusDedup suppresses byte-identical status payloads re-emitted for
// the same collector within the window. A changed payload always
// passes, regardless of timing.
type StatusDedup struct {
	clock   clock.Clock
	window  time.Duration
	maxKeys int
	entries map[string]statusEntry
}

// NewStatusDedup returns a deduper with the default window and key
// bound.
func NewStatusDedup(clk clock.Clock) *StatusDedup {
	return &StatusDedup{
		clock:   clk,
		window:  DefaultStatusWindow,
		maxKeys: DefaultStatusKeys,
		entries: make(map[string]statusEntry),
	}
}

// ShouldEmit reports whether the payload for the given collector key
// should go out, and records it as the key's latest emission when it
// should.
func (d *StatusDedup) ShouldEmit(key string, payload []byte) bool {
	now := d.clock.Now()
	sum := blake3.Sum256(payload)
	if entry, ok := d.entries[key]; ok {
		if entry.sum == sum && now.Sub(entry.emittedAt) < d.window {
			return false
		}
	} else if len(d.entries) >= d.maxKeys {
		d.evictOldest()
	}
	d.entries[key] = statusEntry{sum: sum, emittedAt: now}
	return true
}

func (d *StatusDedup) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range d.entries {
		if first || entry.emittedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.emittedAt
			first = false
		}
	}
	delete(d.entries, oldestKey)
}
