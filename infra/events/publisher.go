// Package events bridges the in-process audit bus to an MQTT broker so
// external observers can consume registration and claim records.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/openvest/vestd/core/audit"
	"github.com/openvest/vestd/infra/logger"
	"github.com/openvest/vestd/internal/eventbus"
)

// Config defines the connection parameters for the audit publisher.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "vestd-audit"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "vestd/audit"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// Publisher publishes audit records as JSON to <prefix>/<kind>.
type Publisher struct {
	cli     paho.Client
	prefix  string
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewPublisher connects to the MQTT broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	cli := paho.NewClient(opts)
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	tok := cli.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect timeout after %s", timeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &Publisher{
		cli:     cli,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		timeout: timeout,
		log:     logger.New("audit-publisher"),
	}, nil
}

// Publish sends one audit record.
func (p *Publisher) Publish(rec audit.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.prefix, rec.Kind)
	tok := p.cli.Publish(topic, p.qos, false, payload)
	if !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish timeout on %s", topic)
	}
	return tok.Error()
}

// Run forwards records from the bus until the context is canceled.
func (p *Publisher) Run(ctx context.Context, bus eventbus.Bus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case rec, ok := <-sub:
			if !ok {
				return
			}
			if err := p.Publish(rec); err != nil {
				p.log.Errorf("publish audit record %s: %v", rec.ID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
