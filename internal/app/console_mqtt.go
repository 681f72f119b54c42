// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gpx_logger/internal/config"
	"github.com/relabs-tech/gpx_logger/internal/gpx"
)

// RunConsoleMQTT prints every fix published by the logger until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: %w: mqtt_broker", config.ErrMissingKey)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	printer := consolePrinter{out: os.Stdout}
	if err := subscribeFixes(client, cfg.TopicGPSFix, printer.print); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

type consolePrinter struct {
	out io.Writer
}

func (p consolePrinter) print(m FixMessage) {
	fmt.Fprintln(p.out, formatFixLine(m))
}

func formatFixLine(m FixMessage) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[GPS ]  time=%s lat=%.6f lon=%.6f", gpx.FormatTime(m.Time), m.Latitude, m.Longitude)
	if m.Altitude != nil {
		fmt.Fprintf(&sb, " alt=%.1fm", *m.Altitude)
	}
	if m.Speed != nil {
		fmt.Fprintf(&sb, " speed=%.1fm/s", *m.Speed)
	}
	if m.Bearing != nil {
		fmt.Fprintf(&sb, " course=%.1f°", *m.Bearing)
	}
	if m.Accuracy != nil {
		fmt.Fprintf(&sb, " acc=%.1fm", *m.Accuracy)
	}
	if sats, ok := m.SatelliteCount(); ok {
		fmt.Fprintf(&sb, " sat=%d", sats)
	}
	if m.Extras.HDOP != "" {
		fmt.Fprintf(&sb, " hdop=%s", m.Extras.HDOP)
	}
	fmt.Fprintf(&sb, " src=%s", m.Source)

	return sb.String()
}
