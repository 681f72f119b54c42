// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"math"
	"strconv"
	"time"
)

const metersPerDegree = 111320.0

type mockSource struct {
	origin   Fix
	interval time.Duration
	now      func() time.Time
	start    time.Time
	n        int
}

// NewMockSource creates a mock source that walks a slow circle around
// origin, one fix per interval. now is used for fix times; nil means
// time.Now.
func NewMockSource(origin Fix, interval time.Duration, now func() time.Time) Source {
	if now == nil {
		now = time.Now
	}
	if origin.Source == "" {
		origin.Source = "mock"
	}
	return &mockSource{origin: origin, interval: interval, now: now, start: now()}
}

func (m *mockSource) Next(ctx context.Context) (Fix, error) {
	if m.n > 0 && m.interval > 0 {
		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Fix{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	m.n++

	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	// 200 m radius, one lap every 10 minutes
	const radius = 200.0
	omega := 2 * math.Pi / 600
	angle := elapsed * omega

	fix := m.origin
	fix.Time = t.UTC()
	fix.Latitude = m.origin.Latitude + radius*math.Sin(angle)/metersPerDegree
	fix.Longitude = m.origin.Longitude +
		radius*(1-math.Cos(angle))/(metersPerDegree*math.Cos(m.origin.Latitude*math.Pi/180))

	bearing := math.Mod(90-angle*180/math.Pi, 360)
	if bearing < 0 {
		bearing += 360
	}
	alt := 100 + 5*math.Sin(angle*3)
	if m.origin.Altitude != nil {
		alt += *m.origin.Altitude
	}

	fix.Altitude = Float64(math.Round(alt*10) / 10)
	fix.Bearing = Float32(float32(math.Round(bearing*100) / 100))
	fix.Speed = Float32(float32(math.Round(radius*omega*100) / 100))
	fix.Accuracy = Float32(float32(3 + m.n%3))
	fix.Extras = Extras{
		SatellitesFix: Int(7 + m.n%4),
		HDOP:          strconv.FormatFloat(0.8+float64(m.n%3)/10, 'f', 1, 64),
	}
	return fix, nil
}
