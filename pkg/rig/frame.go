// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"encoding/binary"
	"fmt"
)

// EncodeStartFrame builds the start request: opcode followed by the frame
// rate in network byte order. The frame must go out in a single write.
func EncodeStartFrame(fps uint16) []byte {
	frame := make([]byte, StartFrameSize)
	frame[0] = byte(OpStartRecording)
	binary.BigEndian.PutUint16(frame[1:], fps)
	return frame
}

// DecodeStartFrame is the inverse of EncodeStartFrame
func DecodeStartFrame(frame []byte) (uint16, error) {
	if len(frame) != StartFrameSize {
		return 0, fmt.Errorf("start frame must be %d bytes, got %d", StartFrameSize, len(frame))
	}
	if Opcode(frame[0]) != OpStartRecording {
		return 0, fmt.Errorf("start frame opcode is %s", Opcode(frame[0]))
	}
	return binary.BigEndian.Uint16(frame[1:]), nil
}
