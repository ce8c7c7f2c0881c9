// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, time.NewTicker, or time.Sleep directly. In
// production, Real() provides the standard library behavior. In tests,
// Fake() provides a deterministic clock that advances only when Advance
// is called.
//
// The transport reconnect backoff, the status dedup window, the egress
// rate limiter, and the liveness prober are all driven through a Clock
// so their timing is exact in tests.
package clock
