package pubsub

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// New connects to Google Cloud Pub/Sub for projectID.
func New(ctx context.Context, projectID string) (PubSubClient, error) {
	pubSubC, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return &client{
		client:  pubSubC,
		timeout: 10 * time.Second,
	}, nil
}

// SendMessage msgpack-encodes data and publishes it on the topic, waiting for
// the server to acknowledge.
func (c *client) SendMessage(ctx context.Context, topic EventType, data any) error {
	payload, err := Encode(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := c.client.Topic(string(topic)).Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": string(topic)},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		log.Error("Failed to publish message", "error", err, "topic", topic)
		return err
	}
	log.Debug("Published message", "topic", topic, "serverID", serverID)
	return nil
}

func (c *client) Close() error {
	return c.client.Close()
}

// Encode marshals an event payload with MessagePack.
func Encode(data any) ([]byte, error) {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return nil, err
	}
	return payload, nil
}

// Decode unmarshals a MessagePack payload into returnValue.
func Decode(data []byte, returnValue any) error {
	if err := msgpack.Unmarshal(data, returnValue); err != nil {
		log.Error("MessagePack unmarshal error", "error", err)
		return err
	}
	return nil
}

type noop struct{}

// NewNoop returns a client that drops every message. It is used when no
// Google Cloud project is configured.
func NewNoop() PubSubClient {
	return noop{}
}

func (noop) SendMessage(ctx context.Context, topic EventType, data any) error {
	if _, err := Encode(data); err != nil {
		return err
	}
	log.Debug("Pub/Sub disabled, dropping message", "topic", topic)
	return nil
}

func (noop) Close() error { return nil }
