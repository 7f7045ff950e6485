// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kwactl.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Config
	}{
		{
			name:    "empty file uses defaults",
			content: "",
			want:    Config{FPS: rig.FpsDefault},
		},
		{
			name: "serial",
			content: `port: /dev/ttyACM0
fps: 300
trace_file: session.cbor
`,
			want: Config{Port: "/dev/ttyACM0", FPS: 300, TraceFile: "session.cbor"},
		},
		{
			name: "bridge with mqtt",
			content: `websocket:
  url: wss://bridge.local/serial
  username: admin
  no_ssl_verify: true
mqtt:
  broker: mqtt://broker:1883/lab/arena
`,
			want: Config{
				FPS: rig.FpsDefault,
				WebSocket: WebSocketConfig{
					URL:         "wss://bridge.local/serial",
					Username:    "admin",
					NoSSLVerify: true,
				},
				MQTT: MQTTConfig{Broker: "mqtt://broker:1883/lab/arena"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("Load = %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"fps zero", "fps: 0\n", rig.ErrInvalidFpsRange},
		{"fps too high", "fps: 721\n", rig.ErrInvalidFpsRange},
		{"both targets", "port: COM3\nwebsocket:\n  url: ws://x/serial\n", nil},
		{"bad yaml", "port: [\n", nil},
		{"fps not a number", "fps: fast\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestTarget(t *testing.T) {
	cfg := Default()
	cfg.Port = "COM3"
	if got := cfg.Target(); got != "COM3" {
		t.Errorf("Target = %q, want COM3", got)
	}

	cfg.WebSocket.URL = "ws://bridge/serial"
	if got := cfg.Target(); got != "ws://bridge/serial" {
		t.Errorf("Target = %q, want bridge URL", got)
	}
}
