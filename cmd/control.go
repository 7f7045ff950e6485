// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the rig",
	Long: `Control the rig via an interactive terminal UI.

Features:
  - Serial port list (r refreshes)
  - Frame rate input, validated before it is sent
  - Connect/Disconnect and Start/Stop buttons
  - Event logging

Tab switches between the port list, the FPS input and the buttons. Enter
activates the focused button. A running rig is stopped on exit.

With --url the WebSocket bridge replaces the port list.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	// A configured target is preselected; the bridge is the only choice
	target, _, _ := connectionTarget()
	m := initialControlModel(sess.ctrl, sess.stats, target, settings.WebSocket.URL != "")

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
