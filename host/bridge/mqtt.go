package bridge

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes to an actual MQTT broker.
type MQTTPublisher struct {
	client paho.Client
	prefix string
}

// NewMQTTPublisher creates a publisher connected to the given broker.
// Topics are prefix/status and prefix/message.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(prefix+"/"+TopicMessage, `{"message":"host offline"}`, 1, false)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client: client,
		prefix: prefix,
	}, nil
}

// PublishStatus sends a status payload. QoS 0: a newer one follows
// within the monitor period.
func (p *MQTTPublisher) PublishStatus(payload []byte) error {
	return p.publish(TopicStatus, 0, payload)
}

// PublishMessage sends an alert payload. QoS 1, alerts must arrive.
func (p *MQTTPublisher) PublishMessage(payload []byte) error {
	return p.publish(TopicMessage, 1, payload)
}

func (p *MQTTPublisher) publish(suffix string, qos byte, payload []byte) error {
	token := p.client.Publish(p.prefix+"/"+suffix, qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", suffix)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", suffix, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
