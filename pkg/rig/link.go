// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
)

// Link is the raw byte transport to the rig. It owns the Port exclusively.
// Link is not safe for concurrent use; Controller serializes access.
type Link struct {
	open         Opener
	port         Port
	name         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	tracer       Tracer
}

// NewLink creates a closed link that claims devices through open
func NewLink(open Opener) *Link {
	return &Link{
		open:         open,
		readTimeout:  ReadTimeout,
		writeTimeout: WriteTimeout,
	}
}

// SetTracer installs a hook receiving every byte sent and received
func (l *Link) SetTracer(t Tracer) {
	l.tracer = t
}

// Name returns the device name of the open link, or "" when closed
func (l *Link) Name() string {
	return l.name
}

// IsOpen reports whether a device is currently claimed
func (l *Link) IsOpen() bool {
	return l.port != nil
}

// Open claims portName. A link that is already open is closed first.
func (l *Link) Open(portName string, baudRate int) error {
	if l.port != nil {
		l.Close()
	}

	port, err := l.open(portName, baudRate)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLinkUnavailable, portName, err)
	}
	if err := port.SetReadTimeout(l.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("%w: %s: failed to set read timeout: %v", ErrLinkUnavailable, portName, err)
	}

	l.port = port
	l.name = portName
	l.trace(DirOpen, []byte(portName))
	glog.V(1).Infof("link: opened %s @ %d baud", portName, baudRate)
	return nil
}

// Close releases the device. Closing a closed link is a no-op.
func (l *Link) Close() error {
	if l.port == nil {
		return nil
	}
	if err := l.port.Close(); err != nil {
		glog.Warningf("link: close %s: %v", l.name, err)
	}
	l.trace(DirClose, []byte(l.name))
	glog.V(1).Infof("link: closed %s", l.name)
	l.port = nil
	l.name = ""
	return nil
}

type writeResult struct {
	n   int
	err error
}

// WriteBytes writes all of buf within the write timeout. Bytes already
// transmitted when a failure occurs are not recalled.
//
// A write that times out closes the link. Closing releases the blocked
// driver write, so it can never reach the rig after a later exchange.
func (l *Link) WriteBytes(buf []byte) error {
	port := l.port
	if port == nil {
		return ErrNotOpen
	}

	l.trace(DirTx, buf)
	glog.V(3).Infof("link: TX % X", buf)

	// The port has no write deadline; a stalled write unblocks once the
	// port is closed.
	done := make(chan writeResult, 1)
	go func() {
		n, err := port.Write(buf)
		done <- writeResult{n: n, err: err}
	}()

	timer := time.NewTimer(l.writeTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			if isPortClosed(res.err) {
				return ErrNotOpen
			}
			return fmt.Errorf("write: %w", res.err)
		}
		if res.n < len(buf) {
			return fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteTimeout, res.n, len(buf))
		}
		return nil
	case <-timer.C:
		name := l.name
		glog.Warningf("link: write to %s stalled after %v, closing", name, l.writeTimeout)
		l.Close()
		return fmt.Errorf("%w: %d bytes to %s after %v", ErrWriteTimeout, len(buf), name, l.writeTimeout)
	}
}

// ReadByte blocks up to the read timeout for exactly one byte
func (l *Link) ReadByte() (byte, error) {
	if l.port == nil {
		return 0, ErrNotOpen
	}

	var buf [1]byte
	n, err := l.port.Read(buf[:])
	switch {
	case err == nil && n == 0:
		return 0, fmt.Errorf("%w after %v", ErrReadTimeout, l.readTimeout)
	case errors.Is(err, io.EOF):
		return 0, ErrEndOfStream
	case err != nil && isPortClosed(err):
		return 0, ErrNotOpen
	case err != nil:
		return 0, fmt.Errorf("read: %w", err)
	}

	l.trace(DirRx, buf[:])
	glog.V(3).Infof("link: RX %02X", buf[0])
	return buf[0], nil
}

// DiscardInput drops everything buffered on the receive side without
// blocking. An empty buffer is not an error.
func (l *Link) DiscardInput() error {
	if l.port == nil {
		return ErrNotOpen
	}
	if err := l.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("discard input: %w", err)
	}
	l.trace(DirDiscard, nil)
	return nil
}

func (l *Link) trace(dir Direction, data []byte) {
	if l.tracer != nil {
		l.tracer.Record(dir, data)
	}
}
