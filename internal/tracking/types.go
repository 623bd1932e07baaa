package tracking

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound          = errors.New("tracking record not found")
	ErrDuplicateTracking = errors.New("player is already tracked in this destination")
)

// store handles all database operations for tracking.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// TrackedPlayer is one (player, destination) tracking record.
type TrackedPlayer struct {
	ID            string    `json:"id"`
	PlayerTag     string    `json:"player_tag"`
	OwnerID       string    `json:"owner_id"`
	DestinationID string    `json:"destination_id"`
	CreatedAt     time.Time `json:"created_at"`

	LastTrophyCount  *int `json:"last_trophy_count,omitempty"`
	DailyBaseline    *int `json:"daily_baseline_trophy,omitempty"`
	PreviousBaseline *int `json:"previous_baseline_trophy,omitempty"`
	// BaselineDate is the reset date (YYYY-MM-DD in the reset timezone) the
	// daily baseline belongs to. Empty until the first daily reset.
	BaselineDate string `json:"baseline_date,omitempty"`
}

// Key identifies a tracking record.
type Key struct {
	Tag           string
	DestinationID string
}

func (p TrackedPlayer) Key() Key {
	return Key{Tag: p.PlayerTag, DestinationID: p.DestinationID}
}

// PlayerLink maps a chat user to their own player tag.
type PlayerLink struct {
	OwnerID   string
	PlayerTag string
}
