// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package cot translates between canonical records and the
// Cursor-on-Target tactical-marking XML wire format, in both
// directions.
//
// Encoding builds a fixed-shape event/point/detail tree whose remarks
// text is an ordered, comma-joined list of "Key: value" pairs. The key
// set and order are stable across calls for a given input: downstream
// consumers and the decode path both pattern-match on it.
//
// Decoding is a streaming element-by-element parse. The two message
// classes (drone track and collector status) share the same wire shape
// and are disambiguated by a content sniff on the remarks text.
package cot
