// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package model defines the canonical in-memory records for tracked
// drones, transponder-equipped aircraft, and collector health reports,
// plus the Tracker that owns them.
//
// All position and kinematic fields use the zero-sentinel convention:
// a value of exactly 0.0 means "unknown", not "at the origin". Merge
// logic never lets a zero overwrite a previously known non-zero value.
package model
