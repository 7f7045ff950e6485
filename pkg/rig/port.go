// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is the subset of go.bug.st/serial.Port the Link relies on.
// A read that times out returns (0, nil).
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Opener claims a device. Implementations must not share the returned Port.
type Opener func(portName string, baudRate int) (Port, error)

// OpenSerialPort opens a serial device in 8N1 mode
func OpenSerialPort(portName string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, describePortError(err)
	}
	return port, nil
}

// describePortError turns go.bug.st/serial error codes into operator-facing text
func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortBusy:
		return fmt.Errorf("port is in use by another application: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("port does not exist: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	}
	return err
}

// isPortClosed reports whether err is go.bug.st/serial's closed-port error
func isPortClosed(err error) bool {
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortClosed
}

// PortInfo describes a serial device available for selection
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// String renders the port for pick lists
func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", p.Name, p.VID, p.PID)
	if p.Product != "" {
		s += " " + p.Product
	}
	return s
}

// ListPorts enumerates serial devices, with USB details where the platform
// provides them. Falls back to plain names when detailed enumeration fails.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, plainErr := serial.GetPortsList()
		if plainErr != nil {
			return nil, fmt.Errorf("failed to enumerate serial ports: %w", plainErr)
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		sortPorts(ports)
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sortPorts(ports)
	return ports, nil
}

func sortPorts(ports []PortInfo) {
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
}
