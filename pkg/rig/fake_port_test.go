// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"errors"
	"io"
	"sync"
	"time"
)

// fakePort emulates the rig firmware behind a serial port. Each write is
// passed to respond and the reply is queued for reading. An empty receive
// queue reads as a timeout, like go.bug.st/serial does.
type fakePort struct {
	mu          sync.Mutex
	respond     func(frame []byte) []byte
	rx          []byte
	writes      [][]byte
	resets      int
	closed      bool
	eof         bool
	writeErr    error
	writeBlock  chan struct{}
	blockSize   int
	closing     chan struct{}
	readTimeout time.Duration
}

func newFakePort(respond func(frame []byte) []byte) *fakePort {
	return &fakePort{respond: respond, closing: make(chan struct{})}
}

// errFakeClosed stands in for the driver's closed-port error
var errFakeClosed = errors.New("port closed")

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eof {
		return 0, io.EOF
	}
	if len(f.rx) == 0 {
		return 0, nil
	}
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

// Write blocks on writeBlock when set, for every write or only for writes
// of blockSize bytes. Closing the port releases a blocked write without
// delivering it, like a serial driver does.
func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	closing, gate := f.closing, f.writeBlock
	blocked := gate != nil && (f.blockSize == 0 || len(p) == f.blockSize)
	f.mu.Unlock()

	if blocked {
		select {
		case <-gate:
		case <-closing:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errFakeClosed
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	frame := append([]byte(nil), p...)
	f.writes = append(f.writes, frame)
	if f.respond != nil {
		f.rx = append(f.rx, f.respond(frame)...)
	}
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closing)
	}
	return nil
}

func (f *fakePort) reopen() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.closed = false
		f.closing = make(chan struct{})
	}
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = t
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = nil
	f.resets++
	return nil
}

// queue adds unsolicited bytes to the receive side
func (f *fakePort) queue(b ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, b...)
}

func (f *fakePort) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakePort) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// firmware answers like the rig sketch: a state byte for stop, SEND_FPS for
// a well-formed start frame.
func firmware(frame []byte) []byte {
	switch {
	case len(frame) == 1 && Opcode(frame[0]) == OpStopRecording:
		return []byte{0x00}
	case len(frame) == StartFrameSize && Opcode(frame[0]) == OpStartRecording:
		return []byte{byte(OpSendFps)}
	}
	return nil
}

// silent never answers (port exists, nothing attached)
func silent(frame []byte) []byte {
	return nil
}

// openerFor returns an Opener handing out port, or failing with err
func openerFor(port *fakePort, err error) Opener {
	return func(portName string, baudRate int) (Port, error) {
		if err != nil {
			return nil, err
		}
		port.reopen()
		return port, nil
	}
}

var errPortBusy = errors.New("port busy")
