// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction classifies a trace record
type Direction uint8

// Trace record directions
const (
	DirTx      Direction = iota // Host → rig
	DirRx                       // Rig → host
	DirDiscard                  // Receive buffer flushed
	DirOpen                     // Device claimed, data is the port name
	DirClose                    // Device released, data is the port name
)

func (d Direction) String() string {
	switch d {
	case DirTx:
		return "TX"
	case DirRx:
		return "RX"
	case DirDiscard:
		return "FLUSH"
	case DirOpen:
		return "OPEN"
	case DirClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
}

// Tracer receives link traffic as it happens
type Tracer interface {
	Record(dir Direction, data []byte)
}

// TraceRecord is one entry of an exchange trace.
// Encoded as a CBOR map with integer keys.
type TraceRecord struct {
	Time      int64     `cbor:"0,keyasint"` // Unix nanoseconds
	Direction Direction `cbor:"1,keyasint"`
	Data      []byte    `cbor:"2,keyasint,omitempty"`
}

// Timestamp returns the record time
func (r *TraceRecord) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// TraceWriter appends records to w as a CBOR sequence.
// The first write error is kept and later records are dropped.
type TraceWriter struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	err error
	now func() time.Time
}

// NewTraceWriter creates a tracer writing to w
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{
		enc: cbor.NewEncoder(w),
		now: time.Now,
	}
}

// Record implements Tracer.
func (t *TraceWriter) Record(dir Direction, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return
	}
	rec := TraceRecord{
		Time:      t.now().UnixNano(),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}
	if err := t.enc.Encode(rec); err != nil {
		t.err = fmt.Errorf("failed to write trace record: %w", err)
	}
}

// Err returns the first write error, if any
func (t *TraceWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// TraceReader decodes a CBOR sequence written by TraceWriter
type TraceReader struct {
	dec *cbor.Decoder
}

// NewTraceReader creates a reader over r
func NewTraceReader(r io.Reader) *TraceReader {
	return &TraceReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the trace
func (t *TraceReader) Next() (*TraceRecord, error) {
	var rec TraceRecord
	if err := t.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode trace record: %w", err)
	}
	return &rec, nil
}
