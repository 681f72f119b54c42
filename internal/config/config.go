// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// Source kinds accepted by gps_source.
const (
	SourceSerial = "serial"
	SourceMock   = "mock"
)

// ErrMissingKey is wrapped by validation errors for required keys.
var ErrMissingKey = errors.New("required config key missing")

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string `yaml:"mqtt_broker"`
	MQTTClientIDLogger  string `yaml:"mqtt_client_id_logger"`
	MQTTClientIDConsole string `yaml:"mqtt_client_id_console"`
	MQTTClientIDWeb     string `yaml:"mqtt_client_id_web"`

	// Topics
	TopicGPSFix string `yaml:"topic_gps_fix"`

	// GPS
	GPSSource      string  `yaml:"gps_source"`
	GPSSerialPort  string  `yaml:"gps_serial_port"`
	GPSBaudRate    uint    `yaml:"gps_baud_rate"`
	GPSSourceLabel string  `yaml:"gps_source_label"`
	MockLatitude   float64 `yaml:"mock_latitude"`
	MockLongitude  float64 `yaml:"mock_longitude"`
	MockIntervalMS int     `yaml:"mock_interval_ms"`

	// GPX output
	GPXDir             string  `yaml:"gpx_dir"`
	GPXFilePrefix      string  `yaml:"gpx_file_prefix"`
	GPXFilePerDay      bool    `yaml:"gpx_file_per_day"`
	GPXCreator         string  `yaml:"gpx_creator"`
	GPXTrackName       string  `yaml:"gpx_track_name"`
	NewSegmentOnResume bool    `yaml:"new_segment_on_resume"`
	MinAccuracyMeters  float64 `yaml:"min_accuracy_m"` // 0 logs every fix

	// Web Server
	WebServerPort int `yaml:"web_server_port"`

	// Logging
	LogLevel      string `yaml:"log_level"`
	LogFilePath   string `yaml:"log_file_path"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		MQTTClientIDLogger:  "gpx-logger",
		MQTTClientIDConsole: "gpx-console-subscriber",
		MQTTClientIDWeb:     "gpx-web-subscriber",
		TopicGPSFix:         "gpx_logger/fix",
		GPSSource:           SourceSerial,
		GPSSerialPort:       "/dev/serial0",
		GPSBaudRate:         9600,
		GPSSourceLabel:      "gps",
		MockIntervalMS:      1000,
		GPXDir:              "tracks",
		GPXFilePerDay:       true,
		GPXCreator:          "gpx_logger",
		GPXTrackName:        "gpx_logger track",
		NewSegmentOnResume:  true,
		WebServerPort:       8080,
		LogLevel:            "INFO",
		LogMaxAgeDays:       30,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.GPSSource {
	case SourceSerial:
		if c.GPSSerialPort == "" {
			return fmt.Errorf("%w: gps_serial_port", ErrMissingKey)
		}
		if c.GPSBaudRate == 0 {
			return fmt.Errorf("%w: gps_baud_rate", ErrMissingKey)
		}
	case SourceMock:
		if c.MockIntervalMS < 0 {
			return fmt.Errorf("mock_interval_ms must be >= 0, got %d", c.MockIntervalMS)
		}
	default:
		return fmt.Errorf("gps_source must be %q or %q, got %q", SourceSerial, SourceMock, c.GPSSource)
	}

	if c.GPXDir == "" {
		return fmt.Errorf("%w: gpx_dir", ErrMissingKey)
	}
	if c.GPSSourceLabel == "" {
		return fmt.Errorf("%w: gps_source_label", ErrMissingKey)
	}
	if c.MQTTBroker != "" && c.TopicGPSFix == "" {
		return fmt.Errorf("%w: topic_gps_fix", ErrMissingKey)
	}
	if c.MinAccuracyMeters < 0 {
		return fmt.Errorf("min_accuracy_m must be >= 0, got %v", c.MinAccuracyMeters)
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("web_server_port must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}

// MockInterval returns the delay between mock fixes.
func (c *Config) MockInterval() time.Duration {
	return time.Duration(c.MockIntervalMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
