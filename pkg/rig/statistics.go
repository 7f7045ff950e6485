// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"fmt"
	"sync"
	"time"
)

// Statistics counts link traffic. It implements Tracer and is safe for
// concurrent use.
type Statistics struct {
	mu sync.Mutex
	s  StatisticsSnapshot
}

// StatisticsSnapshot is a copy of the counters at one point in time
type StatisticsSnapshot struct {
	StartTime  time.Time
	LastTxTime time.Time
	LastRxTime time.Time

	// Counters
	TxFrames    uint64
	TxBytes     uint64
	StartFrames uint64
	RxBytes     uint64
	Flushes     uint64
	Opens       uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{s: StatisticsSnapshot{StartTime: time.Now()}}
}

// Record implements Tracer.
func (st *Statistics) Record(dir Direction, data []byte) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	switch dir {
	case DirTx:
		st.s.TxFrames++
		st.s.TxBytes += uint64(len(data))
		if len(data) == StartFrameSize && Opcode(data[0]) == OpStartRecording {
			st.s.StartFrames++
		}
		st.s.LastTxTime = now
	case DirRx:
		st.s.RxBytes += uint64(len(data))
		st.s.LastRxTime = now
	case DirDiscard:
		st.s.Flushes++
	case DirOpen:
		st.s.Opens++
	}
}

// Snapshot returns the current counters
func (st *Statistics) Snapshot() StatisticsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// ResponseRate is the share of sent frames that got a reply byte
func (s StatisticsSnapshot) ResponseRate() float64 {
	if s.TxFrames == 0 {
		return 0
	}
	return float64(s.RxBytes) * 100.0 / float64(s.TxFrames)
}

// String returns a formatted statistics summary
func (s StatisticsSnapshot) String() string {
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames sent:     %8d (%d bytes)\n", s.TxFrames, s.TxBytes)
	result += fmt.Sprintf("Start requests:  %8d\n", s.StartFrames)
	result += fmt.Sprintf("Bytes received:  %8d (%.1f%% of frames answered)\n", s.RxBytes, s.ResponseRate())
	result += fmt.Sprintf("Input flushes:   %8d\n", s.Flushes)
	result += fmt.Sprintf("Port opens:      %8d\n", s.Opens)
	return result
}

// MultiTracer fans records out to several tracers
type MultiTracer []Tracer

// Record implements Tracer.
func (m MultiTracer) Record(dir Direction, data []byte) {
	for _, t := range m {
		t.Record(dir, data)
	}
}
