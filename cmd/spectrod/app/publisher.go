package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttKeepAlive      = 30 * time.Second
)

// Publisher sends JSON payloads to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewPublisher connects to the configured broker and returns a ready
// publisher.
func NewPublisher(config *MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetKeepAlive(mqttKeepAlive).
		SetAutoReconnect(true)

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connecting to mqtt broker %s: timeout", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", config.Broker, err)
	}

	return &Publisher{
		client: client,
		topic:  config.Topic,
		qos:    config.QoS,
	}, nil
}

// PublishJSON marshals obj and publishes it under the configured topic
// with the given subtopic suffix.
func (p *Publisher) PublishJSON(subtopic string, obj any) error {
	msg, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	topic := p.topic
	if subtopic != "" {
		topic = p.topic + "/" + subtopic
	}

	token := p.client.Publish(topic, p.qos, false, msg)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publishing to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, letting in-flight messages drain.
func (p *Publisher) Close() {
	p.client.Disconnect(uint(mqttPublishTimeout / time.Millisecond))
}
