// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Status is a snapshot of the controller state for rendering
type Status struct {
	Port string
	Link LinkState
	Run  RunState
	FPS  uint16
}

// Controller runs the rig session state machine on top of a Link.
//
// All operations block for at most a couple of link round trips and are
// serialized by an internal mutex, so callers on different goroutines never
// interleave exchanges. On any failure the controller falls back to Idle or
// Disconnected rather than claiming the rig is running.
type Controller struct {
	mu        sync.Mutex
	link      *Link
	linkState LinkState
	runState  RunState
	fps       uint16
	port      string

	observerMu sync.Mutex
	observer   func(Status)
}

// NewController creates a disconnected, idle controller with the default FPS
func NewController(link *Link) *Controller {
	return &Controller{
		link:      link,
		linkState: Disconnected,
		runState:  Idle,
		fps:       FpsDefault,
	}
}

// SetObserver registers fn to receive the status after every operation.
// fn is called without the controller lock held.
func (c *Controller) SetObserver(fn func(Status)) {
	c.observerMu.Lock()
	defer c.observerMu.Unlock()
	c.observer = fn
}

// Connect opens portName and probes for a responding rig
func (c *Controller) Connect(portName string) error {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()

	if c.linkState == Connected {
		return fmt.Errorf("%w: already connected to %s", ErrIllegalStateTransition, c.port)
	}

	if err := c.link.Open(portName, BaudRate); err != nil {
		return err
	}

	// An opened port does not mean a rig is attached; only a reply does.
	if _, err := c.exchange(OpStopRecording); err != nil {
		c.link.Close()
		glog.Warningf("rig: no response on %s: %v", portName, err)
		return fmt.Errorf("%w: probe on %s: %w", ErrDeviceNotResponding, portName, err)
	}

	// The rig prints on reset; none of it is a reply to us.
	if err := c.link.DiscardInput(); err != nil {
		glog.Warningf("rig: %v", err)
	}

	c.linkState = Connected
	c.runState = Idle
	c.port = portName
	glog.Infof("rig: connected on %s", portName)
	return nil
}

// Disconnect stops a running rig and releases the link. It always ends
// Disconnected and Idle; calling it again is a no-op.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()

	c.disconnect()
}

func (c *Controller) disconnect() {
	if c.linkState == Connected && c.runState == Running {
		if err := c.stop(); err != nil {
			glog.Warningf("rig: stop before disconnect failed: %v", err)
		}
	}

	c.link.Close()
	if c.linkState == Connected {
		glog.Infof("rig: disconnected from %s", c.port)
	}
	c.linkState = Disconnected
	c.runState = Idle
	c.port = ""
}

// checkLink falls back to Disconnected when the link closed itself during
// an exchange, as it does after a write timeout.
func (c *Controller) checkLink() {
	if c.linkState != Connected || c.link.IsOpen() {
		return
	}
	glog.Warningf("rig: link to %s lost", c.port)
	c.linkState = Disconnected
	c.runState = Idle
	c.port = ""
}

// Close is Disconnect for shutdown paths
func (c *Controller) Close() error {
	c.Disconnect()
	return nil
}

// SetFps stores the frame rate sent with the next start request. No I/O
// is performed.
func (c *Controller) SetFps(value int) error {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()

	if err := ValidateFps(value); err != nil {
		return err
	}
	if c.runState == Running {
		return fmt.Errorf("%w: fps cannot change while running", ErrIllegalStateTransition)
	}

	c.fps = uint16(value)
	glog.V(1).Infof("rig: fps set to %d", value)
	return nil
}

// ToggleRun starts an idle rig or stops a running one and returns the new
// run state.
//
// A stop request is always sent first. The firmware ignores it when idle,
// and its reply resynchronizes the byte stream before a start frame.
func (c *Controller) ToggleRun() (RunState, error) {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()
	defer c.checkLink()

	if c.linkState != Connected {
		return c.runState, fmt.Errorf("%w: not connected", ErrIllegalStateTransition)
	}

	wasRunning := c.runState == Running
	if err := c.stop(); err != nil {
		return c.runState, err
	}
	if wasRunning {
		glog.Infof("rig: stopped")
		return c.runState, nil
	}

	if err := c.link.WriteBytes(EncodeStartFrame(c.fps)); err != nil {
		c.runState = Idle
		return c.runState, fmt.Errorf("%w: start request: %w", ErrDeviceNotResponding, err)
	}

	resp, err := c.link.ReadByte()
	if err != nil {
		c.runState = Idle
		return c.runState, &UnexpectedResponseError{Err: err}
	}
	if Opcode(resp) != OpSendFps {
		c.runState = Idle
		return c.runState, &UnexpectedResponseError{Response: resp, Received: true}
	}

	c.runState = Running
	glog.Infof("rig: running at %d fps", c.fps)
	return c.runState, nil
}

// stop flushes stale input and exchanges a stop request. The run state is
// Idle afterwards whether or not the rig answered.
func (c *Controller) stop() error {
	if err := c.link.DiscardInput(); err != nil {
		glog.V(1).Infof("rig: %v", err)
	}

	_, err := c.exchange(OpStopRecording)
	c.runState = Idle
	if err != nil {
		return fmt.Errorf("%w: stop request: %w", ErrDeviceNotResponding, err)
	}
	return nil
}

// exchange sends a single opcode and reads the one-byte reply
func (c *Controller) exchange(op Opcode) (byte, error) {
	if err := c.link.WriteBytes([]byte{byte(op)}); err != nil {
		return 0, err
	}
	return c.link.ReadByte()
}

// LinkState returns whether a responding rig is attached
func (c *Controller) LinkState() LinkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkState
}

// RunState returns whether the rig is recording
func (c *Controller) RunState() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runState
}

// Fps returns the frame rate used for the next start request
func (c *Controller) Fps() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Port returns the connected device name, or "" when disconnected
func (c *Controller) Port() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Status returns a consistent snapshot of all state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Controller) status() Status {
	return Status{
		Port: c.port,
		Link: c.linkState,
		Run:  c.runState,
		FPS:  c.fps,
	}
}

func (c *Controller) notify() {
	c.observerMu.Lock()
	fn := c.observer
	c.observerMu.Unlock()

	if fn != nil {
		fn(c.Status())
	}
}
