// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"errors"
	"fmt"
)

// Link errors
var (
	// ErrLinkUnavailable is returned when the device cannot be claimed
	// (busy, missing or permission denied).
	ErrLinkUnavailable = errors.New("link unavailable")
	ErrNotOpen         = errors.New("link not open")
	ErrReadTimeout     = errors.New("read timeout")
	ErrWriteTimeout    = errors.New("write timeout")
	ErrEndOfStream     = errors.New("end of stream")
)

// Controller errors
var (
	ErrDeviceNotResponding    = errors.New("device not responding")
	ErrUnexpectedResponse     = errors.New("unexpected response")
	ErrInvalidFpsRange        = errors.New("fps out of range")
	ErrIllegalStateTransition = errors.New("illegal state transition")
)

// UnexpectedResponseError reports a start request the rig did not
// acknowledge with OpSendFps. Received is false when no reply arrived;
// Err then holds the read failure.
type UnexpectedResponseError struct {
	Response byte
	Received bool
	Err      error
}

// Error implements error.
func (e *UnexpectedResponseError) Error() string {
	if !e.Received {
		return fmt.Sprintf("unexpected response: no reply to start request (%v)", e.Err)
	}
	return fmt.Sprintf("unexpected response: got 0x%02X, want 0x%02X (%s)",
		e.Response, byte(OpSendFps), OpSendFps)
}

// Is matches ErrUnexpectedResponse.
func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// Unwrap returns the read failure, if any.
func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// ValidateFps checks that v is a frame rate the firmware accepts
func ValidateFps(v int) error {
	if v < FpsMin || v > FpsMax {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidFpsRange, v, FpsMin, FpsMax)
	}
	return nil
}
