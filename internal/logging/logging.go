// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/relabs-tech/gpx_logger/internal/config"
)

// ParseLevel maps the log_level config value to a logrus level.
// Unknown values fall back to INFO.
func ParseLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return log.TraceLevel
	case "DEBUG":
		return log.DebugLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Configure sets up the standard logrus logger: colored text on stdout and,
// when log_file_path is set, a rotated plain-text file.
func Configure(cfg *config.Config) error {
	return configure(log.StandardLogger(), cfg, os.Stdout)
}

func configure(logger *log.Logger, cfg *config.Config, console io.Writer) error {
	logger.SetLevel(ParseLevel(cfg.LogLevel))
	logger.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: false})
	logger.SetOutput(console)

	if cfg.LogFilePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}

	writers := lfshook.WriterMap{}
	for _, level := range log.AllLevels {
		writers[level] = rotated
	}
	logger.AddHook(lfshook.NewHook(writers, &log.TextFormatter{DisableColors: true, FullTimestamp: true}))
	return nil
}
