// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest runs the inbound side of the bridge: two ZeroMQ SUB
// subscriptions (drone telemetry and collector status), one tactical-
// XML multicast listener, and the single pipeline worker that owns all
// mutable pipeline state.
//
// Source goroutines only move bytes into channels. Decoding, identity
// resolution, record merging, dedup, rate limiting, and egress all run
// on the one worker goroutine, so none of that state needs locks.
// Within one channel, messages are processed in arrival order; across
// channels no ordering is guaranteed. A stale position arriving after
// a newer one for the same record will overwrite it — see the
// model.Tracker documentation for this known limitation.
package ingest
