// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads kwactl defaults from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

// WebSocketConfig selects a serial-to-WebSocket bridge instead of a local port
type WebSocketConfig struct {
	URL         string `yaml:"url"`          // ws:// or wss://
	Username    string `yaml:"username"`     // Basic auth user, password is prompted
	NoSSLVerify bool   `yaml:"no_ssl_verify"` // skip TLS verification for wss://
}

// MQTTConfig enables status publishing
type MQTTConfig struct {
	Broker string `yaml:"broker"` // e.g. mqtt://host:1883/lab/arena
}

// Config aggregates all kwactl settings
type Config struct {
	Port      string          `yaml:"port"`       // serial device, e.g. /dev/ttyACM0 or COM3
	FPS       int             `yaml:"fps"`        // camera frame rate for start requests
	WebSocket WebSocketConfig `yaml:"websocket"`
	TraceFile string          `yaml:"trace_file"` // CBOR exchange trace, empty = off
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{FPS: rig.FpsDefault}
}

// Load reads a YAML file and returns the configuration
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := rig.ValidateFps(cfg.FPS); err != nil {
		return nil, fmt.Errorf("fps: %w", err)
	}
	if cfg.Port != "" && cfg.WebSocket.URL != "" {
		return nil, fmt.Errorf("port and websocket.url are mutually exclusive")
	}

	return cfg, nil
}

// Target returns the device the controller should connect to
func (c *Config) Target() string {
	if c.WebSocket.URL != "" {
		return c.WebSocket.URL
	}
	return c.Port
}
