// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rig implements the host side of the Kine Wheel Arena rig protocol.
//
// The rig is a microcontroller driving the arena lights and the camera
// trigger. The host talks to it over a serial link using single-byte
// opcodes and a 3-byte start frame carrying the camera frame rate. This
// package provides the byte transport (Link) and the session state machine
// (Controller) on top of it.
package rig

import (
	"fmt"
	"time"
)

// Serial line configuration. Must match the firmware sketch.
const (
	BaudRate     = 115200
	ReadTimeout  = 500 * time.Millisecond
	WriteTimeout = 500 * time.Millisecond
)

// Opcode is a single protocol byte exchanged with the firmware.
type Opcode uint8

// Opcode values (fixed by the firmware)
const (
	OpStopRecording  Opcode = 0 // Host → rig, also used as liveness probe
	OpStartRecording Opcode = 1 // Host → rig, followed by 2-byte big-endian FPS
	OpSendFps        Opcode = 2 // Rig → host, acknowledges a start frame
)

// StartFrameSize is the length of the start request on the wire
const StartFrameSize = 3

// Camera frame rate limits
const (
	FpsMin     = 1
	FpsMax     = 720
	FpsDefault = 720
)

// String returns the protocol name of the opcode
func (o Opcode) String() string {
	switch o {
	case OpStopRecording:
		return "STOP_RECORDING"
	case OpStartRecording:
		return "START_RECORDING"
	case OpSendFps:
		return "SEND_FPS"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(o))
	}
}

// LinkState tells whether a responding rig is attached
type LinkState int

// Link states
const (
	Disconnected LinkState = iota
	Connected
)

func (s LinkState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// RunState tells whether lights are on and the camera is being triggered
type RunState int

// Run states
const (
	Idle RunState = iota
	Running
)

func (s RunState) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}
