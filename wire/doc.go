// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire classifies and parses one inbound telemetry or status
// payload into a typed intermediate representation, and resolves the
// authoritative identity for drone broadcasts.
//
// Inbound payloads arrive in several incompatible shapes from
// heterogeneous sensor backends: fragmented multi-message JSON arrays,
// single-object broadcasts with historically inconsistent key
// spellings, nested video-transmitter detection envelopes, and raw
// short-range serial alerts. Decode performs the classification once
// at the boundary so everything downstream is statically typed.
//
// The decoder has no network or state knowledge. Parse failures never
// propagate past it: callers drop the message and continue.
package wire
