// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedup suppresses redundant outbound traffic: byte-identical
// status re-broadcasts inside a short window, and per-track emit rates
// above a configured floor.
//
// Neither type is safe for concurrent use. Both are owned by the
// single pipeline worker, which is also why they take their timestamps
// from an injected clock rather than the wall clock.
package dedup
