// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports the rig may be attached to",
	Long: `List serial devices present on this machine.

USB devices show their vendor and product IDs, serial number and product
name where the platform reports them. The rig shows up as a USB CDC device.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := rig.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		return nil
	}

	for _, p := range ports {
		fmt.Printf("%s\n", p.Name)
		if !p.IsUSB {
			continue
		}
		fmt.Printf("  USB ID: %s:%s\n", p.VID, p.PID)
		if p.SerialNumber != "" {
			fmt.Printf("  Serial: %s\n", p.SerialNumber)
		}
		if p.Product != "" {
			fmt.Printf("  Product: %s\n", p.Product)
		}
	}
	return nil
}
