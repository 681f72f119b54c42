// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gpx_logger/internal/app"
	"github.com/relabs-tech/gpx_logger/internal/config"
	"github.com/relabs-tech/gpx_logger/internal/logging"
)

var cli struct {
	Config string `short:"c" default:"gpx_logger.yml" help:"Path to the YAML config file."`
}

func main() {
	kong.Parse(&cli, kong.Description("GPX logger console (MQTT subscriber)"), kong.UsageOnError())

	// Load configuration
	if err := config.InitGlobal(cli.Config); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	if err := logging.Configure(cfg); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}
	log.Info("starting gpx logger console (MQTT subscriber)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
