// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// kwactl - Kine Wheel Arena rig controller
//
// A CLI tool for connecting to the arena rig over serial, setting the camera
// frame rate and starting or stopping a recording.

package main

import (
	"os"

	"github.com/Thermoquad/kwactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
