package pubsub

import "context"

// PubSubClient publishes domain events for downstream consumers.
type PubSubClient interface {
	SendMessage(ctx context.Context, topic EventType, data any) error
	Close() error
}
