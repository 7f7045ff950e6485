// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

// errFpsInput is shown for any FPS text that is not a valid frame rate
var errFpsInput = fmt.Errorf("FPS value must be a number in [%d, %d]", rig.FpsMin, rig.FpsMax)

// parseFps validates operator input before it reaches the controller
func parseFps(text string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || rig.ValidateFps(v) != nil {
		return 0, errFpsInput
	}
	return v, nil
}
