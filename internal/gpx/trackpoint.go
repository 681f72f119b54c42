// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gpx

import (
	"strconv"
	"strings"

	"github.com/relabs-tech/gpx_logger/internal/gps"
)

const (
	// ClosingSuffix terminates every fragment returned by Format. The file
	// writer overwrites it when the next point is appended.
	ClosingSuffix = "</trkseg></trk></gpx>"
	// TrackEnd is the part of ClosingSuffix after the segment end tag.
	TrackEnd = "</trk></gpx>"

	segmentStart = "<trkseg>"
)

// SegmentState tells whether the next point opens a new track segment.
type SegmentState int

const (
	// FreshSegment means the next point is prefixed with <trkseg>.
	FreshSegment SegmentState = iota
	// InSegment means points are appended to the open segment.
	InSegment
)

func (s SegmentState) String() string {
	switch s {
	case FreshSegment:
		return "fresh_segment"
	case InSegment:
		return "in_segment"
	default:
		return "unknown"
	}
}

// Formatter turns fixes into GPX 1.1 track point fragments.
// A Formatter belongs to one log file and must not be shared between
// goroutines.
type Formatter struct {
	state SegmentState
}

// NewFormatter returns a formatter. With startNewSegment the first
// fragment it produces opens a new <trkseg>.
func NewFormatter(startNewSegment bool) *Formatter {
	if startNewSegment {
		return &Formatter{state: FreshSegment}
	}
	return &Formatter{state: InSegment}
}

// State returns the current segment state.
func (f *Formatter) State() SegmentState {
	return f.state
}

// Format renders fix as a <trkpt> element followed by a newline and
// ClosingSuffix. timestamp is written as is.
func (f *Formatter) Format(fix gps.Fix, timestamp string) string {
	var sb strings.Builder

	if f.state == FreshSegment {
		sb.WriteString(segmentStart)
		f.state = InSegment
	}

	sb.WriteString(`<trkpt lat="`)
	sb.WriteString(formatFloat64(fix.Latitude))
	sb.WriteString(`" lon="`)
	sb.WriteString(formatFloat64(fix.Longitude))
	sb.WriteString(`">`)

	if fix.Altitude != nil {
		writeElement(&sb, "ele", formatFloat64(*fix.Altitude))
	}

	writeElement(&sb, "time", escape(timestamp))

	if fix.Bearing != nil {
		writeElement(&sb, "course", formatFloat32(*fix.Bearing))
	}
	if fix.Extras.GeoidHeight != "" {
		writeElement(&sb, "geoidheight", escape(fix.Extras.GeoidHeight))
	}

	writeElement(&sb, "src", escape(fix.Source))

	if sats, ok := fix.SatelliteCount(); ok {
		writeElement(&sb, "sat", strconv.Itoa(sats))
	}
	if fix.Extras.HDOP != "" {
		writeElement(&sb, "hdop", escape(fix.Extras.HDOP))
	}

	if fix.Speed != nil || fix.Accuracy != nil {
		sb.WriteString("<extensions>")
		if fix.Speed != nil {
			writeElement(&sb, "gps:speed", formatFloat32(*fix.Speed))
		}
		if fix.Accuracy != nil {
			writeElement(&sb, "gps:acc", formatFloat32(*fix.Accuracy))
		}
		sb.WriteString("</extensions>")
	}

	sb.WriteString("</trkpt>\n")
	sb.WriteString(ClosingSuffix)

	return sb.String()
}

// OverwriteLength returns how many trailing bytes of the log file the
// fragment replaces. A fragment opening a new segment keeps the </trkseg>
// of the previous one.
func OverwriteLength(fragment string) int {
	if strings.HasPrefix(fragment, segmentStart) {
		return len(TrackEnd)
	}
	return len(ClosingSuffix)
}

func writeElement(sb *strings.Builder, name, value string) {
	sb.WriteByte('<')
	sb.WriteString(name)
	sb.WriteByte('>')
	sb.WriteString(value)
	sb.WriteString("</")
	sb.WriteString(name)
	sb.WriteByte('>')
}

// formatFloat64 and formatFloat32 print the shortest decimal that round
// trips at the value's precision, always with a fractional digit.
func formatFloat64(v float64) string {
	return withFraction(strconv.FormatFloat(v, 'f', -1, 64))
}

func formatFloat32(v float32) string {
	return withFraction(strconv.FormatFloat(float64(v), 'f', -1, 32))
}

func withFraction(s string) string {
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}
