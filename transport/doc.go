// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport delivers encoded tactical events to one configured
// destination over TCP, TLS, or UDP.
//
// A Conn is a connection state machine: disconnected → connecting →
// connected, with failed reachable from connecting or connected.
// Failed is never terminal — the connect loop retries with exponential
// backoff until Disconnect is called. Stream protocols prefix each
// payload with a 4-byte big-endian length; UDP sends payloads unframed,
// fire and forget.
//
// While not connected, sends accumulate in a bounded FIFO queue. A
// full queue drops the newest send (reported as ErrQueueFull),
// preserving the order of everything already queued. On reaching
// connected, the queue flushes in order before new sends go out
// directly.
//
// The TLS protocol requires an IdentityProvider. A connect attempt
// asks it for the current client identity before opening any socket
// and fails fast with ErrCertificateUnavailable when none is
// available, which backs off like any other connect failure.
package transport
