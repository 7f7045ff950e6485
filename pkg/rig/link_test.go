// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestLink_OpenSetsReadTimeout(t *testing.T) {
	port := newFakePort(firmware)
	link := NewLink(openerFor(port, nil))

	if err := link.Open("/dev/ttyACM0", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !link.IsOpen() {
		t.Error("IsOpen() = false after Open")
	}
	if link.Name() != "/dev/ttyACM0" {
		t.Errorf("Name() = %q, want /dev/ttyACM0", link.Name())
	}
	if port.readTimeout != ReadTimeout {
		t.Errorf("read timeout = %v, want %v", port.readTimeout, ReadTimeout)
	}
}

func TestLink_OpenFailure(t *testing.T) {
	link := NewLink(openerFor(nil, errPortBusy))

	err := link.Open("COM3", BaudRate)
	if !errors.Is(err, ErrLinkUnavailable) {
		t.Fatalf("Open error = %v, want ErrLinkUnavailable", err)
	}
	if link.IsOpen() {
		t.Error("IsOpen() = true after failed Open")
	}
}

func TestLink_CloseIdempotent(t *testing.T) {
	port := newFakePort(firmware)
	link := NewLink(openerFor(port, nil))

	if err := link.Close(); err != nil {
		t.Errorf("Close on never-opened link = %v, want nil", err)
	}
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := link.Close(); err != nil {
			t.Errorf("Close #%d = %v, want nil", i+1, err)
		}
	}
	if !port.isClosed() {
		t.Error("port not closed")
	}
	if link.Name() != "" {
		t.Errorf("Name() = %q after Close, want empty", link.Name())
	}
}

func TestLink_NotOpen(t *testing.T) {
	link := NewLink(openerFor(newFakePort(firmware), nil))

	if err := link.WriteBytes([]byte{0}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("WriteBytes error = %v, want ErrNotOpen", err)
	}
	if _, err := link.ReadByte(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadByte error = %v, want ErrNotOpen", err)
	}
	if err := link.DiscardInput(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("DiscardInput error = %v, want ErrNotOpen", err)
	}
}

func TestLink_WriteThenRead(t *testing.T) {
	port := newFakePort(firmware)
	link := NewLink(openerFor(port, nil))
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	frame := EncodeStartFrame(300)
	if err := link.WriteBytes(frame); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	b, err := link.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte failed: %v", err)
	}
	if b != byte(OpSendFps) {
		t.Errorf("ReadByte = 0x%02X, want 0x%02X", b, byte(OpSendFps))
	}

	writes := port.written()
	if len(writes) != 1 || !bytes.Equal(writes[0], frame) {
		t.Errorf("written = % X, want one write of % X", writes, frame)
	}
}

func TestLink_ReadTimeout(t *testing.T) {
	link := NewLink(openerFor(newFakePort(silent), nil))
	if err := link.Open("COM5", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := link.ReadByte(); !errors.Is(err, ErrReadTimeout) {
		t.Errorf("ReadByte error = %v, want ErrReadTimeout", err)
	}
}

func TestLink_EndOfStream(t *testing.T) {
	port := newFakePort(firmware)
	port.eof = true
	link := NewLink(openerFor(port, nil))
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := link.ReadByte(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("ReadByte error = %v, want ErrEndOfStream", err)
	}
}

func TestLink_WriteTimeout(t *testing.T) {
	port := newFakePort(firmware)
	port.writeBlock = make(chan struct{})
	defer close(port.writeBlock)

	link := NewLink(openerFor(port, nil))
	link.writeTimeout = 20 * time.Millisecond
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	start := time.Now()
	err := link.WriteBytes([]byte{0})
	if !errors.Is(err, ErrWriteTimeout) {
		t.Fatalf("WriteBytes error = %v, want ErrWriteTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WriteBytes took %v, expected to give up near %v", elapsed, link.writeTimeout)
	}
	if link.IsOpen() {
		t.Error("IsOpen() = true after write timeout")
	}
	if !port.isClosed() {
		t.Error("port left open after write timeout")
	}
	if got := port.written(); len(got) != 0 {
		t.Errorf("stalled write delivered: % X", got)
	}
}

func TestLink_WriteError(t *testing.T) {
	port := newFakePort(firmware)
	port.writeErr = errors.New("i/o error")
	link := NewLink(openerFor(port, nil))
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err := link.WriteBytes([]byte{0})
	if err == nil {
		t.Fatal("WriteBytes succeeded, want error")
	}
	if !errors.Is(err, port.writeErr) {
		t.Errorf("WriteBytes error = %v, want wrapped %v", err, port.writeErr)
	}
}

func TestLink_DiscardInput(t *testing.T) {
	port := newFakePort(silent)
	link := NewLink(openerFor(port, nil))
	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	port.queue('R', 'E', 'S', 'E', 'T')
	if err := link.DiscardInput(); err != nil {
		t.Fatalf("DiscardInput failed: %v", err)
	}
	if _, err := link.ReadByte(); !errors.Is(err, ErrReadTimeout) {
		t.Errorf("ReadByte after discard = %v, want ErrReadTimeout", err)
	}

	// Nothing buffered is fine too
	if err := link.DiscardInput(); err != nil {
		t.Errorf("DiscardInput on empty buffer = %v, want nil", err)
	}
}

type recordingTracer struct {
	dirs []Direction
	data [][]byte
}

func (r *recordingTracer) Record(dir Direction, data []byte) {
	r.dirs = append(r.dirs, dir)
	r.data = append(r.data, append([]byte(nil), data...))
}

func TestLink_Tracer(t *testing.T) {
	tracer := &recordingTracer{}
	link := NewLink(openerFor(newFakePort(firmware), nil))
	link.SetTracer(tracer)

	if err := link.Open("COM3", BaudRate); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := link.WriteBytes([]byte{0}); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	if _, err := link.ReadByte(); err != nil {
		t.Fatalf("ReadByte failed: %v", err)
	}
	if err := link.DiscardInput(); err != nil {
		t.Fatalf("DiscardInput failed: %v", err)
	}
	link.Close()

	want := []Direction{DirOpen, DirTx, DirRx, DirDiscard, DirClose}
	if len(tracer.dirs) != len(want) {
		t.Fatalf("traced %v, want %v", tracer.dirs, want)
	}
	for i := range want {
		if tracer.dirs[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, tracer.dirs[i], want[i])
		}
	}
	if string(tracer.data[0]) != "COM3" {
		t.Errorf("open record data = %q, want COM3", tracer.data[0])
	}
}
