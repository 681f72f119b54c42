// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "time"

// Fix represents a single combined GPS fix suitable for GPX, JSON and MQTT.
// Optional values are nil when the receiver did not report them.
type Fix struct {
	Source    string    `json:"source"` // provider label, e.g. "gps"
	Time      time.Time `json:"time"`   // fix instant, UTC
	Latitude  float64   `json:"lat"`    // decimal degrees
	Longitude float64   `json:"lon"`    // decimal degrees

	Altitude *float64 `json:"alt_m,omitempty"`      // metres above mean sea level
	Bearing  *float32 `json:"course_deg,omitempty"` // course over ground
	Speed    *float32 `json:"speed_mps,omitempty"`  // speed over ground, m/s
	Accuracy *float32 `json:"accuracy_m,omitempty"` // horizontal accuracy, metres

	Extras Extras `json:"extras"`
}

// Extras carries the receiver-specific values that do not have a dedicated
// accessor on a fix.
type Extras struct {
	// Satellites is the number of satellites used in the fix as reported by
	// the provider ("satellites").
	Satellites *int `json:"satellites,omitempty"`
	// SatellitesFix is the count tracked by the logging session for
	// providers that never report Satellites ("SATELLITES_FIX").
	SatellitesFix *int `json:"satellites_fix,omitempty"`
	// HDOP is kept verbatim ("HDOP"); empty means absent.
	HDOP string `json:"hdop,omitempty"`
	// GeoidHeight is kept verbatim ("GEOIDHEIGHT"); empty means absent.
	GeoidHeight string `json:"geoid_height,omitempty"`
}

// SatelliteCount resolves the satellites used in the fix. The provider
// value wins; the session-tracked count is used only when the provider gave
// none. Values <= 0 are the no-value sentinel and never resolve.
func (f Fix) SatelliteCount() (int, bool) {
	if f.Extras.Satellites != nil && *f.Extras.Satellites > 0 {
		return *f.Extras.Satellites, true
	}
	if f.Extras.SatellitesFix != nil && *f.Extras.SatellitesFix > 0 {
		return *f.Extras.SatellitesFix, true
	}
	return 0, false
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
