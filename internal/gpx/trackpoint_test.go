// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gpx

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/gpx_logger/internal/gps"
)

const mockTime = "2011-09-17T18:45:33Z"

func mockFix() gps.Fix {
	return gps.Fix{Source: "MOCK", Latitude: 12.193, Longitude: 19.111}
}

func movingFix() gps.Fix {
	fix := mockFix()
	fix.Altitude = gps.Float64(9001)
	fix.Bearing = gps.Float32(91.88)
	fix.Speed = gps.Float32(188.44)
	return fix
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		fix      func() gps.Fix
		expected string
	}{
		{
			name: "basic location",
			fix:  mockFix,
			expected: `<trkpt lat="12.193" lon="19.111"><time>2011-09-17T18:45:33Z</time><src>MOCK</src></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "speed only",
			fix: func() gps.Fix {
				fix := mockFix()
				fix.Speed = gps.Float32(41)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><time>2011-09-17T18:45:33Z</time>` +
				`<src>MOCK</src><extensions><gps:speed>41.0</gps:speed></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "zero speed still has extensions",
			fix: func() gps.Fix {
				fix := mockFix()
				fix.Speed = gps.Float32(0)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><time>2011-09-17T18:45:33Z</time>` +
				`<src>MOCK</src><extensions><gps:speed>0.0</gps:speed></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "altitude bearing speed",
			fix:  movingFix,
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><extensions><gps:speed>188.44</gps:speed></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "accuracy 97",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Accuracy = gps.Float32(97)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><extensions><gps:speed>188.44</gps:speed><gps:acc>97.0</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "accuracy 55 without satellites",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Accuracy = gps.Float32(55)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><extensions><gps:speed>188.44</gps:speed><gps:acc>55.0</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "accuracy without speed",
			fix: func() gps.Fix {
				fix := mockFix()
				fix.Accuracy = gps.Float32(3.5)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><time>2011-09-17T18:45:33Z</time>` +
				`<src>MOCK</src><extensions><gps:acc>3.5</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "provider satellites win over tracked ones",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Accuracy = gps.Float32(55)
				fix.Extras.Satellites = gps.Int(9)
				fix.Extras.SatellitesFix = gps.Int(22)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><sat>9</sat><extensions><gps:speed>188.44</gps:speed><gps:acc>55.0</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "tracked satellites when provider has none",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Accuracy = gps.Float32(55)
				fix.Extras.SatellitesFix = gps.Int(22)
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><sat>22</sat><extensions><gps:speed>188.44</gps:speed><gps:acc>55.0</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "hdop",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Extras.HDOP = "LOOKATTHISHDOP!"
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><src>MOCK</src><hdop>LOOKATTHISHDOP!</hdop><extensions><gps:speed>188.44</gps:speed></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "geoid height",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Extras.GeoidHeight = "MYGEOIDHEIGHT"
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><geoidheight>MYGEOIDHEIGHT</geoidheight><src>MOCK</src><extensions><gps:speed>188.44</gps:speed></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
		{
			name: "every field",
			fix: func() gps.Fix {
				fix := movingFix()
				fix.Accuracy = gps.Float32(4)
				fix.Extras = gps.Extras{
					Satellites:    gps.Int(7),
					SatellitesFix: gps.Int(5),
					HDOP:          "0.9",
					GeoidHeight:   "47.2",
				}
				return fix
			},
			expected: `<trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
				`<course>91.88</course><geoidheight>47.2</geoidheight><src>MOCK</src><sat>7</sat><hdop>0.9</hdop>` +
				`<extensions><gps:speed>188.44</gps:speed><gps:acc>4.0</gps:acc></extensions></trkpt>` +
				"\n</trkseg></trk></gpx>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(false)
			assert.Equal(t, tt.expected, f.Format(tt.fix(), mockTime))
		})
	}
}

func TestFormat_NewSegmentOnlyOnFirstPoint(t *testing.T) {
	f := NewFormatter(true)
	assert.Equal(t, FreshSegment, f.State())

	first := f.Format(movingFix(), mockTime)
	expected := `<trkseg><trkpt lat="12.193" lon="19.111"><ele>9001.0</ele><time>2011-09-17T18:45:33Z</time>` +
		`<course>91.88</course><src>MOCK</src><extensions><gps:speed>188.44</gps:speed></extensions></trkpt>` +
		"\n</trkseg></trk></gpx>"
	assert.Equal(t, expected, first)
	assert.Equal(t, InSegment, f.State())

	second := f.Format(movingFix(), mockTime)
	assert.Equal(t, strings.TrimPrefix(expected, "<trkseg>"), second)
	assert.Equal(t, InSegment, f.State())
}

func TestFormat_NoSegmentWhenNotRequested(t *testing.T) {
	f := NewFormatter(false)
	assert.Equal(t, InSegment, f.State())
	assert.False(t, strings.HasPrefix(f.Format(mockFix(), mockTime), "<trkseg>"))
}

func TestFormat_ZeroSatellitesOmitted(t *testing.T) {
	fix := mockFix()
	fix.Extras.Satellites = gps.Int(0)
	fix.Extras.SatellitesFix = gps.Int(-1)

	out := NewFormatter(false).Format(fix, mockTime)
	assert.NotContains(t, out, "<sat>")
}

func TestFormat_NegativeCoordinatesKeepSign(t *testing.T) {
	fix := gps.Fix{Source: "gps", Latitude: -33.8688, Longitude: -151}
	out := NewFormatter(false).Format(fix, mockTime)
	assert.True(t, strings.HasPrefix(out, `<trkpt lat="-33.8688" lon="-151.0">`), out)
}

func TestFormat_EscapesText(t *testing.T) {
	fix := mockFix()
	fix.Source = "a<b&c"
	out := NewFormatter(false).Format(fix, mockTime)
	assert.Contains(t, out, "<src>a&lt;b&amp;c</src>")
}

func TestOverwriteLength(t *testing.T) {
	assert.Equal(t, len("</trkseg></trk></gpx>"), OverwriteLength("<trkpt/>\n"+ClosingSuffix))
	assert.Equal(t, len("</trk></gpx>"), OverwriteLength("<trkseg><trkpt/>\n"+ClosingSuffix))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.193", formatFloat64(12.193))
	assert.Equal(t, "9001.0", formatFloat64(9001))
	assert.Equal(t, "0.0", formatFloat64(0))
	assert.Equal(t, "91.88", formatFloat32(91.88))
	assert.Equal(t, "188.44", formatFloat32(188.44))
	assert.Equal(t, "NaN", formatFloat64(math.NaN()))
}
