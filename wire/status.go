// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"github.com/dragonlink-project/dragonlink/model"
)

// StatusReport is one collector health report from the status channel,
// before it becomes a model.StatusRecord.
type StatusReport struct {
	SerialNumber string
	Lat          float64
	Lon          float64
	Altitude     float64
	Speed        float64
	Track        float64

	CPUUsage      float64
	MemoryTotalMB float64
	MemoryAvailMB float64
	DiskTotalMB   float64
	DiskUsedMB    float64
	TemperatureC  float64
	UptimeSeconds float64

	PlutoTempC float64
	ZynqTempC  float64
}

// decodeStatusReport extracts a collector health report. The shape is
// the monitor daemon's JSON: serial_number at the top level, nested
// gps_data, system_stats (with memory and disk sub-objects), and
// optional ant_sdr_temps.
func decodeStatusReport(object map[string]any) (*StatusReport, bool) {
	serial, _ := asString(object["serial_number"])
	if serial == "" {
		return nil, false
	}
	report := &StatusReport{SerialNumber: serial}

	if gps, ok := object["gps_data"].(map[string]any); ok {
		report.Lat, _ = asFloat(gps["latitude"])
		report.Lon, _ = asFloat(gps["longitude"])
		report.Altitude, _ = asFloat(gps["altitude"])
		report.Speed, _ = asFloat(gps["speed"])
		report.Track, _ = asFloat(gps["track"])
	}

	if stats, ok := object["system_stats"].(map[string]any); ok {
		report.CPUUsage, _ = asFloat(stats["cpu_usage"])
		if memory, ok := stats["memory"].(map[string]any); ok {
			report.MemoryTotalMB, _ = asFloat(memory["total"])
			report.MemoryAvailMB, _ = asFloat(memory["available"])
		}
		if disk, ok := stats["disk"].(map[string]any); ok {
			report.DiskTotalMB, _ = asFloat(disk["total"])
			report.DiskUsedMB, _ = asFloat(disk["used"])
		}
		report.TemperatureC, _ = asFloat(stats["temperature"])
		report.UptimeSeconds, _ = asFloat(stats["uptime"])
	}

	if temps, ok := object["ant_sdr_temps"].(map[string]any); ok {
		report.PlutoTempC, _ = asFloat(temps["pluto_temp"])
		report.ZynqTempC, _ = asFloat(temps["zynq_temp"])
	}

	return report, true
}

// Record converts the report to its canonical form.
func (r *StatusReport) Record() *model.StatusRecord {
	return &model.StatusRecord{
		SerialNumber:  r.SerialNumber,
		Lat:           r.Lat,
		Lon:           r.Lon,
		Altitude:      r.Altitude,
		Speed:         r.Speed,
		Track:         r.Track,
		CPUUsage:      r.CPUUsage,
		MemoryTotalMB: r.MemoryTotalMB,
		MemoryAvailMB: r.MemoryAvailMB,
		DiskTotalMB:   r.DiskTotalMB,
		DiskUsedMB:    r.DiskUsedMB,
		TemperatureC:  r.TemperatureC,
		UptimeSeconds: r.UptimeSeconds,
		PlutoTempC:    r.PlutoTempC,
		ZynqTempC:     r.ZynqTempC,
	}
}
