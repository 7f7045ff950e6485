// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"golang.org/x/term"

	"github.com/Thermoquad/kwactl/pkg/rig"
	"github.com/Thermoquad/kwactl/pkg/status"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("KWACTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// newOpener picks the transport for the configured target
func newOpener() (rig.Opener, error) {
	if settings.WebSocket.URL == "" {
		return rig.OpenSerialPort, nil
	}

	password := ""
	if settings.WebSocket.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}
	return rig.WebSocketOpener(rig.WebSocketOptions{
		Username:      settings.WebSocket.Username,
		Password:      password,
		SkipSSLVerify: settings.WebSocket.NoSSLVerify,
	}), nil
}

// connectionTarget returns the configured device and a line describing it
func connectionTarget() (string, string, error) {
	target := settings.Target()
	switch {
	case target == "":
		return "", "", fmt.Errorf("either --port or --url must be specified")
	case target == settings.WebSocket.URL:
		return target, fmt.Sprintf("WebSocket: %s", target), nil
	default:
		return target, fmt.Sprintf("Serial: %s @ %d baud", target, rig.BaudRate), nil
	}
}

// session bundles a controller with the optional trace file and status publisher
type session struct {
	ctrl      *rig.Controller
	trace     *os.File
	tracer    *rig.TraceWriter
	stats     *rig.Statistics
	publisher *status.Publisher
}

// openSession builds a disconnected controller configured from settings
func openSession() (*session, error) {
	opener, err := newOpener()
	if err != nil {
		return nil, err
	}

	link := rig.NewLink(opener)
	s := &session{stats: rig.NewStatistics()}
	tracers := rig.MultiTracer{s.stats}

	if settings.TraceFile != "" {
		f, err := os.OpenFile(settings.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		s.trace = f
		s.tracer = rig.NewTraceWriter(f)
		tracers = append(tracers, s.tracer)
	}
	link.SetTracer(tracers)

	s.ctrl = rig.NewController(link)
	if err := s.ctrl.SetFps(settings.FPS); err != nil {
		s.Close()
		return nil, err
	}

	if settings.MQTT.Broker != "" {
		pub, err := status.NewPublisher(settings.MQTT.Broker)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := pub.Connect(); err != nil {
			s.Close()
			return nil, err
		}
		s.publisher = pub
		s.ctrl.SetObserver(pub.Observer())
		pub.Publish(s.ctrl.Status())
		glog.Infof("publishing status to %s", pub.Topic())
	}

	return s, nil
}

// Close stops a running rig, then releases the port, trace file and broker
func (s *session) Close() {
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.trace != nil {
		if err := s.tracer.Err(); err != nil {
			glog.Warningf("trace: %v", err)
		}
		s.trace.Close()
	}
}
