// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

const knotsToMetersPerSecond = 0.514444

// NMEA field positions, counted after the sentence type.
const (
	rmcSpeedField    = 6
	rmcCourseField   = 7
	ggaHDOPField     = 7
	ggaAltitudeField = 8
	ggaGeoidField    = 10
	gsaHDOPField     = 15
	vtgTrackField    = 0
	vtgKnotsField    = 4
)

// Assembler combines the NMEA sentences of one receiver epoch into a Fix.
// An epoch is identified by the UTC time of its RMC and GGA sentences and
// is complete once both arrived, in either order. An epoch whose GGA never
// arrives is emitted when the next epoch starts or on Flush. GSA and VTG
// carry no time and belong to the epoch being collected.
//
// The count of satellites used in the fix taken from GSA is remembered
// across epochs and reported as Extras.SatellitesFix, for receivers whose
// GGA leaves the satellites field empty.
type Assembler struct {
	source string

	open    bool
	time    nmea.Time
	rmc     *nmea.RMC
	gga     *nmea.GGA
	ggaSeen bool
	vtg     *nmea.VTG
	epochSV int
	gsaHDOP string

	trackedSatellites int
}

// NewAssembler returns an Assembler labelling its fixes with source.
func NewAssembler(source string) *Assembler {
	return &Assembler{source: source}
}

// Feed parses one NMEA line. It returns a fix when the line completes a
// valid epoch, or starts a new one while the previous epoch still waits
// for its GGA. Lines that are not NMEA sentences are ignored.
func (a *Assembler) Feed(line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	// NMEA sentences usually start with '$'
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea parse: %w", err)
	}

	switch m := sentence.(type) {
	case nmea.GGA:
		fix, ok := a.begin(m.Time)
		a.ggaSeen = true
		if m.FixQuality != nmea.Invalid {
			a.gga = &m
		}
		if ok {
			return fix, true, nil
		}
	case nmea.RMC:
		fix, ok := a.begin(m.Time)
		a.rmc = &m
		if ok {
			return fix, true, nil
		}
	case nmea.GSA:
		for _, sv := range m.SV {
			if sv != "" {
				a.epochSV++
			}
		}
		if m.HDOP > 0 && hasField(m.BaseSentence, gsaHDOPField) {
			a.gsaHDOP = m.Fields[gsaHDOPField]
		}
		return Fix{}, false, nil
	case nmea.VTG:
		a.vtg = &m
		return Fix{}, false, nil
	default:
		return Fix{}, false, nil
	}

	if a.rmc != nil && a.ggaSeen {
		fix, ok := a.Flush()
		return fix, ok, nil
	}
	return Fix{}, false, nil
}

// Flush emits the epoch being collected, even when its GGA never arrived.
func (a *Assembler) Flush() (Fix, bool) {
	if !a.open {
		return Fix{}, false
	}
	rmc, gga, vtg, gsaHDOP := a.rmc, a.gga, a.vtg, a.gsaHDOP
	if a.epochSV > 0 {
		a.trackedSatellites = a.epochSV
	}
	a.open, a.rmc, a.gga, a.ggaSeen, a.vtg, a.epochSV, a.gsaHDOP = false, nil, nil, false, nil, 0, ""

	if rmc == nil || string(rmc.Validity) != nmea.ValidRMC {
		return Fix{}, false
	}
	return a.build(*rmc, gga, vtg, gsaHDOP), true
}

// TrackedSatellites returns the last satellites-used count seen in GSA.
func (a *Assembler) TrackedSatellites() int {
	return a.trackedSatellites
}

// begin makes t the epoch being collected. A pending epoch with another
// time is flushed first.
func (a *Assembler) begin(t nmea.Time) (Fix, bool) {
	if a.open && a.time == t {
		return Fix{}, false
	}
	fix, ok := a.Flush()
	a.open, a.time = true, t
	return fix, ok
}

func (a *Assembler) build(m nmea.RMC, gga *nmea.GGA, vtg *nmea.VTG, gsaHDOP string) Fix {
	fix := Fix{
		Source:    a.source,
		Time:      fixTime(m.Date, m.Time),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}

	switch {
	case hasField(m.BaseSentence, rmcSpeedField):
		fix.Speed = Float32(float32(m.Speed * knotsToMetersPerSecond))
	case vtg != nil && hasField(vtg.BaseSentence, vtgKnotsField):
		fix.Speed = Float32(float32(vtg.GroundSpeedKnots * knotsToMetersPerSecond))
	}
	switch {
	case hasField(m.BaseSentence, rmcCourseField):
		fix.Bearing = Float32(float32(m.Course))
	case vtg != nil && hasField(vtg.BaseSentence, vtgTrackField):
		fix.Bearing = Float32(float32(vtg.TrueTrack))
	}

	if gga != nil {
		if hasField(gga.BaseSentence, ggaAltitudeField) {
			fix.Altitude = Float64(gga.Altitude)
		}
		if gga.NumSatellites > 0 {
			fix.Extras.Satellites = Int(int(gga.NumSatellites))
		}
		if hasField(gga.BaseSentence, ggaHDOPField) && gga.HDOP > 0 {
			fix.Extras.HDOP = gga.Fields[ggaHDOPField]
		}
		if hasField(gga.BaseSentence, ggaGeoidField) {
			fix.Extras.GeoidHeight = gga.Fields[ggaGeoidField]
		}
	}

	if fix.Extras.HDOP == "" {
		fix.Extras.HDOP = gsaHDOP
	}

	if a.trackedSatellites > 0 {
		fix.Extras.SatellitesFix = Int(a.trackedSatellites)
	}

	return fix
}

func hasField(s nmea.BaseSentence, i int) bool {
	return i < len(s.Fields) && s.Fields[i] != ""
}

func fixTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
