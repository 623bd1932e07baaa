package pubsub

import (
	"time"

	"cloud.google.com/go/pubsub"
)

type client struct {
	client  *pubsub.Client
	timeout time.Duration
}

// EventType represents the type of event/message sent via pubsub. It doubles
// as the topic name.
type EventType string

const (
	EventTrophyChange EventType = "trophy-change"
	EventDailySummary EventType = "daily-summary"
)

// TrophyChangeMessage is published for every detected trophy change.
type TrophyChangeMessage struct {
	Tag           string    `msgpack:"tag"`
	PlayerName    string    `msgpack:"player_name"`
	DestinationID string    `msgpack:"destination_id"`
	Previous      int       `msgpack:"previous"`
	Current       int       `msgpack:"current"`
	Delta         int       `msgpack:"delta"`
	Category      string    `msgpack:"category"`
	ObservedAt    time.Time `msgpack:"observed_at"`
}

// DailySummaryMessage is published for every summary sent.
type DailySummaryMessage struct {
	Tag           string    `msgpack:"tag"`
	PlayerName    string    `msgpack:"player_name"`
	DestinationID string    `msgpack:"destination_id"`
	Start         int       `msgpack:"start"`
	Current       int       `msgpack:"current"`
	Delta         int       `msgpack:"delta"`
	FirstSummary  bool      `msgpack:"first_summary"`
	Date          string    `msgpack:"date"`
	SentAt        time.Time `msgpack:"sent_at"`
}
