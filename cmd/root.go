// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/config"
)

var (
	// Serial connection flags
	portName string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Session flags
	configPath string
	traceFile  string
	mqttBroker string

	// settings is the config file merged with explicitly set flags
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "kwactl",
	Short: "Kine Wheel Arena rig controller",
	Long: `kwactl - Host-side control for the Kine Wheel Arena rig.

The rig switches the arena lights and triggers the camera at a configured
frame rate. kwactl connects to it over serial, checks that it responds, sets
the frame rate and starts or stops recording.

Connection modes:
  Serial:    --port /dev/ttyACM0
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the KWACTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Defaults may be kept in a YAML file passed with --config. Flags given on the
command line take precedence over the file.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Session flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "Record every exchange to a CBOR trace file")
	rootCmd.PersistentFlags().StringVar(&mqttBroker, "mqtt", "", "Publish status to an MQTT broker (mqtt://host:1883/prefix)")

	// glog: -v, --logtostderr, --log_dir, ...
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// loadSettings reads the config file and applies flags set on the command line
func loadSettings(cmd *cobra.Command, args []string) error {
	// glog checks that the Go flag set was parsed; pflag already filled it in
	flag.CommandLine.Parse([]string{})

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		settings.Port = portName
		settings.WebSocket.URL = ""
	}
	if flags.Changed("url") {
		settings.WebSocket.URL = wsURL
		settings.Port = ""
	}
	if flags.Changed("username") {
		settings.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		settings.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("trace") {
		settings.TraceFile = traceFile
	}
	if flags.Changed("mqtt") {
		settings.MQTT.Broker = mqttBroker
	}

	glog.V(1).Infof("settings: %+v", *settings)
	return nil
}

// Execute runs the root command
func Execute() error {
	defer glog.Flush()
	return rootCmd.Execute()
}
