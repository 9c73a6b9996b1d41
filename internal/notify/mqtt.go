package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher subset of the MQTT client used here
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier publishes signals to <topic>/<profile_id>
type MQTTNotifier struct {
	client Publisher
	topic  string
	qos    byte
}

func NewMQTTNotifier(client Publisher, topic string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: topic, qos: qos}
}

func (n *MQTTNotifier) Notify(_ context.Context, signal Signal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	topic := n.topic + "/" + signal.ProfileID
	if err := n.client.Publish(topic, n.qos, false, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
