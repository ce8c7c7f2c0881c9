// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc is the control-socket protocol between the daemon and
// the operator CLI: length-framed CBOR request/response over a local
// Unix socket. Encoding is Core Deterministic (RFC 8949 §4.2) so the
// same logical message always produces identical bytes.
package ipc
