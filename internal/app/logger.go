// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gpx_logger/internal/config"
	"github.com/relabs-tech/gpx_logger/internal/gps"
	"github.com/relabs-tech/gpx_logger/internal/gpx"
	"github.com/relabs-tech/gpx_logger/internal/gpxfile"
)

// Logger is one logging session: it owns the open GPX file and the
// formatter writing into it.
type Logger struct {
	cfg *config.Config
	src gps.Source
	pub Publisher
	now func() time.Time

	session string
	entry   *log.Entry

	file      *gpxfile.File
	formatter *gpx.Formatter
	fileDay   string

	written int
	skipped int
}

// NewLogger returns a session reading src. pub may be nil.
func NewLogger(cfg *config.Config, src gps.Source, pub Publisher) *Logger {
	if pub == nil {
		pub = nopPublisher{}
	}
	session := uuid.NewString()
	return &Logger{
		cfg:     cfg,
		src:     src,
		pub:     pub,
		now:     time.Now,
		session: session,
		entry:   log.WithField("session", session),
	}
}

// Session returns the session id attached to logs and MQTT messages.
func (l *Logger) Session() string {
	return l.session
}

// Run logs fixes until ctx is cancelled or the source is exhausted.
func (l *Logger) Run(ctx context.Context) error {
	defer l.closeFile()

	for {
		fix, err := l.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				l.entry.Infof("logger: stopping after %d points (%d skipped)", l.written, l.skipped)
				return nil
			}
			return fmt.Errorf("gps source: %w", err)
		}

		if err := l.Log(fix); err != nil {
			return err
		}
	}
}

// Log appends one fix to the current GPX file and publishes it.
func (l *Logger) Log(fix gps.Fix) error {
	if l.rejected(fix) {
		l.skipped++
		l.entry.Debugf("logger: skipped fix with accuracy %.1f m", *fix.Accuracy)
		return nil
	}

	when := fix.Time
	if when.IsZero() {
		when = l.now()
	}

	if err := l.ensureFile(when); err != nil {
		return err
	}

	fragment := l.formatter.Format(fix, gpx.FormatTime(when))
	if err := l.file.AppendTrackPoint(fragment, gpx.OverwriteLength(fragment)); err != nil {
		return fmt.Errorf("append to %s: %w", l.file.Path(), err)
	}
	l.written++

	payload, err := json.Marshal(FixMessage{Fix: fix, Session: l.session, GPXFile: l.file.Path()})
	if err != nil {
		l.entry.Errorf("logger: fix marshal error: %v", err)
		return nil
	}
	if err := l.pub.Publish(l.cfg.TopicGPSFix, payload); err != nil {
		l.entry.Warnf("logger: publish error: %v", err)
	}

	l.entry.Debugf("logger: wrote fix lat=%.6f lon=%.6f", fix.Latitude, fix.Longitude)
	return nil
}

// rejected reports whether fix is less accurate than min_accuracy_m.
// Fixes without an accuracy are always kept.
func (l *Logger) rejected(fix gps.Fix) bool {
	return l.cfg.MinAccuracyMeters > 0 &&
		fix.Accuracy != nil &&
		float64(*fix.Accuracy) > l.cfg.MinAccuracyMeters
}

// ensureFile opens the session file, or the next one when per-day files
// roll over at UTC midnight.
func (l *Logger) ensureFile(when time.Time) error {
	day := when.UTC().Format("20060102")
	if l.file != nil && (!l.cfg.GPXFilePerDay || day == l.fileDay) {
		return nil
	}

	l.closeFile()

	path := gpxfile.FileName(l.cfg.GPXDir, l.cfg.GPXFilePrefix, when, l.cfg.GPXFilePerDay)
	file, existed, err := gpxfile.Open(path, l.cfg.GPXCreator, l.cfg.GPXTrackName, when)
	if err != nil {
		return err
	}

	l.file = file
	l.fileDay = day
	l.formatter = gpx.NewFormatter(existed && l.cfg.NewSegmentOnResume)

	if existed {
		l.entry.Infof("logger: resuming %s (%s)", path, l.formatter.State())
	} else {
		l.entry.Infof("logger: created %s", path)
	}
	return nil
}

func (l *Logger) closeFile() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		l.entry.Errorf("logger: closing %s: %v", l.file.Path(), err)
	}
	l.file = nil
}

// RunLogger wires the configured source and MQTT publisher into a Logger
// and runs it until ctx is done.
func RunLogger(ctx context.Context, cfg *config.Config) error {
	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return err
	}
	// closing the port unblocks a pending read
	stop := context.AfterFunc(ctx, closeSrc)
	defer func() {
		if stop() {
			closeSrc()
		}
	}()

	var pub Publisher
	if cfg.MQTTBroker != "" {
		pub, err = NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientIDLogger)
		if err != nil {
			return err
		}
		defer pub.Close()
	} else {
		log.Info("logger: no MQTT broker configured, fixes are only written to GPX")
	}

	l := NewLogger(cfg, src, pub)
	l.entry.Infof("logger: starting (%s source)", cfg.GPSSource)
	return l.Run(ctx)
}

func openSource(cfg *config.Config) (gps.Source, func(), error) {
	switch cfg.GPSSource {
	case config.SourceMock:
		origin := gps.Fix{Source: cfg.GPSSourceLabel, Latitude: cfg.MockLatitude, Longitude: cfg.MockLongitude}
		return gps.NewMockSource(origin, cfg.MockInterval(), nil), func() {}, nil
	default:
		src, err := gps.NewSerialSource(cfg.GPSSerialPort, cfg.GPSBaudRate, cfg.GPSSourceLabel)
		if err != nil {
			return nil, nil, err
		}
		closeSrc := func() {
			if err := src.Close(); err != nil {
				log.Warnf("logger: closing serial port: %v", err)
			}
		}
		return src, closeSrc, nil
	}
}
