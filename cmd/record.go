// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

var (
	recordFps      int
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Run one recording session without the TUI",
	Long: `Connect, start recording at the configured frame rate and stop again.

Recording stops when --duration elapses or on Ctrl+C. The rig is always sent
a stop request before the port is released.

Examples:
  kwactl record --port /dev/ttyACM0 --fps 500 --duration 30s
  kwactl record --config lab.yaml`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().IntVar(&recordFps, "fps", rig.FpsDefault, "Camera frame rate [1, 720]")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	fps := settings.FPS
	if cmd.Flags().Changed("fps") {
		fps = recordFps
	}
	if err := rig.ValidateFps(fps); err != nil {
		return err
	}

	target, connInfo, err := connectionTarget()
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("kwactl - Record\n")
	fmt.Printf("Connection: %s\n", connInfo)

	if err := sess.ctrl.Connect(target); err != nil {
		return err
	}
	if err := sess.ctrl.SetFps(fps); err != nil {
		return err
	}

	if _, err := sess.ctrl.ToggleRun(); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	started := time.Now()
	fmt.Printf("Recording at %d fps", fps)
	if recordDuration > 0 {
		fmt.Printf(" for %v", recordDuration)
	}
	fmt.Printf(" - press Ctrl+C to stop\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}
	<-ctx.Done()

	state, err := sess.ctrl.ToggleRun()
	if err != nil {
		return fmt.Errorf("failed to stop recording: %w", err)
	}
	fmt.Printf("Stopped after %v (%s)\n\n", time.Since(started).Round(time.Millisecond), state)
	fmt.Print(sess.stats.Snapshot().String())
	return nil
}
