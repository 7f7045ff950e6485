// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"fmt"
	"strings"
)

// FormatOpcode returns the name of a single protocol byte
func FormatOpcode(b byte) string {
	switch Opcode(b) {
	case OpStopRecording, OpStartRecording, OpSendFps:
		return Opcode(b).String()
	default:
		return "UNKNOWN"
	}
}

// FormatFrame renders bytes seen on the link in human-readable form
func FormatFrame(dir Direction, data []byte) string {
	switch dir {
	case DirOpen, DirClose:
		return fmt.Sprintf("%s %s", dir, string(data))
	case DirDiscard:
		return dir.String()
	}

	if dir == DirTx && len(data) == StartFrameSize {
		if fps, err := DecodeStartFrame(data); err == nil {
			return fmt.Sprintf("%s %s fps=%d [%s]", dir, OpStartRecording, fps, hexBytes(data))
		}
	}

	if len(data) == 1 {
		return fmt.Sprintf("%s %s (0x%02X)", dir, FormatOpcode(data[0]), data[0])
	}

	return fmt.Sprintf("%s [%s]", dir, hexBytes(data))
}

// FormatTraceRecord renders a trace record with its timestamp
func FormatTraceRecord(r *TraceRecord) string {
	return fmt.Sprintf("[%s] %s", r.Timestamp().Format("15:04:05.000"), FormatFrame(r.Direction, r.Data))
}

func hexBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
