// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package status publishes rig session state to an MQTT broker so other
// lab tools can follow the arena without owning the serial port.
package status

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

// DefaultTopicPrefix is used when the broker URL carries no path
const DefaultTopicPrefix = "kwactl"

// ConnectTimeout bounds the initial broker connection
const ConnectTimeout = 5 * time.Second

// Message is the retained payload on <prefix>/status
type Message struct {
	Port string `json:"port"`
	Link string `json:"link"`
	Run  string `json:"run"`
	FPS  uint16 `json:"fps"`
	Time string `json:"time"` // RFC 3339
}

// NewMessage converts a controller snapshot taken at t
func NewMessage(s rig.Status, t time.Time) Message {
	return Message{
		Port: s.Port,
		Link: s.Link.String(),
		Run:  s.Run.String(),
		FPS:  s.FPS,
		Time: t.UTC().Format(time.RFC3339Nano),
	}
}

// ClientOptionsFromURL parses mqtt://[user:pass@]host:port/prefix[?client-id=id].
// The path becomes the topic prefix.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid broker URL: %w", err)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("invalid broker URL %q: missing host", brokerURL)
	}

	var server string
	switch u.Scheme {
	case "", "mqtt":
		server = "tcp"
	default:
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.Trim(u.Path, "/")
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(ConnectTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	clientID := u.Query().Get("client-id")
	if clientID == "" {
		clientID = defaultClientID()
	}
	opts.SetClientID(clientID)

	return opts, topicPrefix, nil
}

// defaultClientID derives a stable id so a restarted kwactl replaces its own
// session on the broker instead of piling up new ones.
func defaultClientID() string {
	id, err := machineid.ProtectedID("kwactl")
	if err != nil {
		glog.Warningf("status: machine id unavailable: %v", err)
		return fmt.Sprintf("kwactl-%d", time.Now().UnixNano())
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return "kwactl-" + id
}

// client is the part of paho.Client the publisher uses
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends retained status messages
type Publisher struct {
	client client
	topic  string
	now    func() time.Time
}

// NewPublisher creates a publisher for brokerURL. Call Connect before use.
func NewPublisher(brokerURL string) (*Publisher, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return newPublisher(paho.NewClient(opts), prefix), nil
}

func newPublisher(c client, prefix string) *Publisher {
	return &Publisher{
		client: c,
		topic:  prefix + "/status",
		now:    time.Now,
	}
}

// Topic returns the status topic
func (p *Publisher) Topic() string {
	return p.topic
}

// Connect blocks until the broker accepts the session
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %v", ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Publish sends s as a retained message. It does not wait for delivery.
func (p *Publisher) Publish(s rig.Status) error {
	payload, err := json.Marshal(NewMessage(s, p.now()))
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	token := p.client.Publish(p.topic, 1, true, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			glog.Warningf("status: publish to %s failed: %v", p.topic, err)
		}
	}()
	return nil
}

// Observer adapts Publish for rig.Controller.SetObserver
func (p *Publisher) Observer() func(rig.Status) {
	return func(s rig.Status) {
		if err := p.Publish(s); err != nil {
			glog.Warningf("status: %v", err)
		}
	}
}

// Close disconnects after in-flight messages are flushed
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
