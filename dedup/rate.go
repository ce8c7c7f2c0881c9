// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/dragonlink-project/dragonlink/lib/clock"
)

// DefaultPurgeAfter is how long an idle per-key limiter survives
// before it is dropped.
const DefaultPurgeAfter = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a minimum interval between emissions per track key.
// Timestamps come from the injected clock, passed explicitly to the
// underlying token buckets, so behavior is deterministic under a fake
// clock.
type Limiter struct {
	clock      clock.Clock
	interval   time.Duration
	purgeAfter time.Duration
	entries    map[string]*limiterEntry
	lastPurge  time.Time
}

// NewLimiter returns a per-key limiter allowing one emission per
// interval per key. Idle keys are purged after DefaultPurgeAfter.
func NewLimiter(clk clock.Clock, interval time.Duration) *Limiter {
	return &Limiter{
		clock:      clk,
		interval:   interval,
		purgeAfter: DefaultPurgeAfter,
		entries:    make(map[string]*limiterEntry),
		lastPurge:  clk.Now(),
	}
}

// Allow reports whether an emission for the key may proceed now, and
// consumes the key's token when it may.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	l.maybePurge(now)
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.interval), 1)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Len reports the number of live per-key limiters.
func (l *Limiter) Len() int {
	return len(l.entries)
}

// maybePurge drops limiters for keys not seen within the purge
// horizon. Runs at most once per horizon so steady-state Allow calls
// stay O(1).
func (l *Limiter) maybePurge(now time.Time) {
	if now.Sub(l.lastPurge) < l.purgeAfter {
		return
	}
	l.lastPurge = now
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= l.purgeAfter {
			delete(l.entries, key)
		}
	}
}
