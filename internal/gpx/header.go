// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gpx

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

const (
	// Namespace is the GPX 1.1 schema namespace.
	Namespace = "http://www.topografix.com/GPX/1/1"
	// ExtensionsNamespace is bound to the gps: prefix used inside <extensions>.
	ExtensionsNamespace = "http://relabs.tech/xmlschemas/gpx_logger/1"

	schemaLocation = Namespace + " http://www.topografix.com/GPX/1/1/gpx.xsd"
)

// Header returns the initial content of a new log file: the document
// prologue, metadata, an open track segment and ClosingSuffix. The first
// fragment from a non-fresh Formatter is appended straight into that
// segment.
func Header(creator, trackName string, created time.Time) string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n")
	sb.WriteString(`<gpx version="1.1" creator="`)
	sb.WriteString(escape(creator))
	sb.WriteString(`" xmlns="` + Namespace + `"`)
	sb.WriteString(` xmlns:gps="` + ExtensionsNamespace + `"`)
	sb.WriteString(` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	sb.WriteString(` xsi:schemaLocation="` + schemaLocation + `">`)

	sb.WriteString("<metadata>")
	writeElement(&sb, "time", FormatTime(created))
	sb.WriteString("</metadata>")

	sb.WriteString("<trk>")
	writeElement(&sb, "name", escape(trackName))
	sb.WriteString(segmentStart + "\n")
	sb.WriteString(ClosingSuffix)

	return sb.String()
}

// FormatTime renders t as an ISO 8601 UTC timestamp. Milliseconds are
// included only when t has a sub-second part.
func FormatTime(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Millisecond) == 0 {
		return t.Format("2006-01-02T15:04:05Z")
	}
	return t.Format("2006-01-02T15:04:05.000Z")
}

func escape(s string) string {
	if !strings.ContainsAny(s, `<>&'"`+"\t\n\r") {
		return s
	}
	var buf bytes.Buffer
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
