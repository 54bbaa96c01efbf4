package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"co2_monitor/internal/models"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
)

// mqttPublisher is the part of mqtt.Client the channel uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTChannel publishes notifications to a topic. The last notification is
// retained so new subscribers see the current alert.
type MQTTChannel struct {
	client mqttPublisher
	topic  string
}

// NewMQTTChannel connects to broker.
func NewMQTTChannel(broker, clientID, topic string) (*MQTTChannel, error) {
	if broker == "" {
		return nil, errors.New("mqtt channel: empty broker")
	}
	if topic == "" {
		return nil, errors.New("mqtt channel: empty topic")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTChannel{client: c, topic: topic}, nil
}

func (m *MQTTChannel) Send(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("error marshalling notification: %w", err)
	}
	token := m.client.Publish(m.topic, mqttQoS, true, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects when the underlying client supports it.
func (m *MQTTChannel) Close() error {
	if c, ok := m.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
	return nil
}
