// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rig

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketOptions configures a serial-to-WebSocket bridge connection
type WebSocketOptions struct {
	Username      string
	Password      string
	SkipSSLVerify bool
}

// WebSocketOpener returns an Opener that treats the port name as a ws:// or
// wss:// URL of a bridge forwarding raw bytes to the rig. The baud rate is
// set on the bridge side and ignored here.
func WebSocketOpener(opts WebSocketOptions) Opener {
	return func(portName string, baudRate int) (Port, error) {
		return OpenWebSocketPort(portName, opts)
	}
}

// OpenWebSocketPort dials the bridge with optional HTTP Basic auth
func OpenWebSocketPort(wsURL string, opts WebSocketOptions) (Port, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebSocketPort(conn), nil
}

// webSocketPort adapts a WebSocket connection to the Port interface.
//
// gorilla/websocket connections cannot recover from a read deadline, so a
// background reader owns ReadMessage and Read waits on its channel instead.
type webSocketPort struct {
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}

	mu          sync.Mutex
	readTimeout time.Duration
	buf         []byte
	bufOffset   int

	closeOnce sync.Once
}

func newWebSocketPort(conn *websocket.Conn) *webSocketPort {
	p := &webSocketPort{
		conn:        conn,
		messages:    make(chan []byte, 64),
		done:        make(chan struct{}),
		readTimeout: ReadTimeout,
	}
	go p.readLoop()
	return p
}

func (p *webSocketPort) readLoop() {
	defer close(p.messages)
	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		// Only binary messages carry protocol bytes. An empty one would
		// read as a timeout.
		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		select {
		case p.messages <- data:
		case <-p.done:
			return
		}
	}
}

// Read returns buffered bytes first, then waits for the next message.
// A timeout yields (0, nil); a closed connection yields io.EOF.
func (p *webSocketPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.bufOffset < len(p.buf) {
		n := copy(b, p.buf[p.bufOffset:])
		p.bufOffset += n
		p.mu.Unlock()
		return n, nil
	}
	timeout := p.readTimeout
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-p.messages:
		if !ok {
			return 0, io.EOF
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		n := copy(b, data)
		p.buf = data
		p.bufOffset = n
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (p *webSocketPort) Write(b []byte) (int, error) {
	if err := p.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return 0, err
	}
	if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *webSocketPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// ResetInputBuffer drops the partially consumed message and every message
// already queued by the reader.
func (p *webSocketPort) ResetInputBuffer() error {
	p.mu.Lock()
	p.buf = nil
	p.bufOffset = 0
	p.mu.Unlock()

	for {
		select {
		case _, ok := <-p.messages:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (p *webSocketPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}
