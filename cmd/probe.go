// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that a rig answers on the configured port",
	Long: `Open the port, send a stop request and wait for any reply.

The stop request is harmless to an idle rig, so probing never starts the
lights or the camera.

Exit codes:
  0 - Rig responded
  1 - Port opened but nothing answered
  2 - Port could not be opened`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// exit is swapped out in tests
var exit = os.Exit

// exitWith flushes glog first; os.Exit skips the deferred flush in Execute
func exitWith(code int) {
	glog.Flush()
	exit(code)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if code := probe(); code != 0 {
		exitWith(code)
	}
	return nil
}

// probe returns the process exit code documented on probeCmd
func probe() int {
	target, connInfo, err := connectionTarget()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return 2
	}

	sess, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return 2
	}

	fmt.Printf("kwactl - Probe\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	err = sess.ctrl.Connect(target)
	sess.Close()

	switch {
	case err == nil:
		fmt.Printf("SUCCESS: Rig responded on %s\n", target)
		return 0
	case errors.Is(err, rig.ErrDeviceNotResponding):
		fmt.Fprintf(os.Stderr, "NO RESPONSE: %v\n", err)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return 2
	}
}
