// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package adsb polls a readsb-compatible HTTP endpoint for transponder
// aircraft and converts each poll into a batch of aircraft records.
//
// The endpoint serves the usual /data/aircraft.json shape. Fields that
// readsb reports in aviation units (altitude in feet, ground speed in
// knots, vertical rate in feet per minute) are converted to the metric
// units the rest of the pipeline uses. Aircraft on the ground report
// alt_baro as the string "ground"; that decodes as altitude zero.
package adsb
