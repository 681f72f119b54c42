// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatelliteCount(t *testing.T) {
	tests := []struct {
		name     string
		extras   Extras
		expected int
		ok       bool
	}{
		{name: "none", extras: Extras{}},
		{name: "provider only", extras: Extras{Satellites: Int(9)}, expected: 9, ok: true},
		{name: "fallback only", extras: Extras{SatellitesFix: Int(22)}, expected: 22, ok: true},
		{name: "provider wins", extras: Extras{Satellites: Int(9), SatellitesFix: Int(22)}, expected: 9, ok: true},
		{name: "provider sentinel falls back", extras: Extras{Satellites: Int(-1), SatellitesFix: Int(22)}, expected: 22, ok: true},
		{name: "zero is not a count", extras: Extras{Satellites: Int(0), SatellitesFix: Int(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Fix{Extras: tt.extras}.SatelliteCount()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestFixJSONOmitsMissingValues(t *testing.T) {
	payload, err := json.Marshal(Fix{Source: "gps", Latitude: 1, Longitude: 2})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.NotContains(t, raw, "alt_m")
	assert.NotContains(t, raw, "speed_mps")
	assert.Equal(t, "gps", raw["source"])
}

func TestMockSource(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	src := NewMockSource(Fix{Latitude: 48.1, Longitude: 11.5}, 0, clock)
	ctx := context.Background()

	first, err := src.Next(ctx)
	require.NoError(t, err)
	second, err := src.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "mock", first.Source)
	assert.True(t, second.Time.After(first.Time))
	assert.InDelta(t, 48.1, second.Latitude, 0.01)
	assert.InDelta(t, 11.5, second.Longitude, 0.01)
	assert.NotEqual(t, first.Latitude, second.Latitude)
	require.NotNil(t, second.Speed)
	_, ok := second.SatelliteCount()
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
