package mqtt

import (
	"context"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/intake-sensor/internal/report"
)

// Options configures the broker connection.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	DeviceID    string
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client      paho.Client
	topic       string
	topicSystem string
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// The connection is retried in the background; reports published while it is
// down fail and are not buffered.
func NewRealPublisher(opts Options) *RealPublisher {
	topic, topicSystem := Topics(opts.TopicPrefix, opts.DeviceID)

	lwt := willPayload(time.Now(), FormatSystemPayload)

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(topicSystem, lwt, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", opts.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(co)
	client.Connect()

	return &RealPublisher{
		client:      client,
		topic:       topic,
		topicSystem: topicSystem,
	}
}

// Name identifies the sink in logs.
func (p *RealPublisher) Name() string { return "mqtt" }

// Send publishes an intake report. Returns CodePublished on broker ack.
func (p *RealPublisher) Send(ctx context.Context, payload report.Payload) (int, error) {
	data, err := report.FormatPayload(payload)
	if err != nil {
		return -1, fmt.Errorf("format payload: %w", err)
	}

	if !p.client.IsConnectionOpen() {
		return 0, fmt.Errorf("publish: not connected")
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.topic, 0, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return 0, fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("publish: %w", err)
	}

	return CodePublished, nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	token := p.client.Publish(p.topicSystem, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
