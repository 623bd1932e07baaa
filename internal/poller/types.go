package poller

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/schedule"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

// State is the lifecycle state of a Poller.
type State string

const (
	StateInitializing State = "INITIALIZING"
	StatePolling      State = "POLLING"
	StateTerminated   State = "TERMINATED"
)

// ErrNotEligible is returned by Initialize when the player is outside the
// eligible league.
var ErrNotEligible = errors.New("player is not in the eligible league")

// ErrShutdown is the cancellation cause used when the whole process stops.
// A poller cancelled with it exits without a tracking stopped notification,
// since its record stays and is resumed on the next start.
var ErrShutdown = errors.New("shutting down")

// Config holds the timing and policy knobs of a Poller.
type Config struct {
	Interval         time.Duration
	RetryDelay       time.Duration
	InitAttempts     int
	InitBackoff      time.Duration
	EligibleLeagueID int
	Schedule         schedule.Daily
	// AnnounceThreeStarDefense controls whether a -40 change is announced. It
	// is always persisted.
	AnnounceThreeStarDefense bool
	// MaxMissedPolls is the number of consecutive not-found answers after
	// which polling stops. Zero disables the limit.
	MaxMissedPolls int
}

// Poller follows the trophy count of one tracked player and reports every
// change to the record's destination.
//
// All fields below the dependencies are owned by the goroutine running the
// poller.
type Poller struct {
	tag           string
	ownerID       string
	destinationID string

	client   clash.Client
	store    tracking.Store
	notifier Notifier
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
	cfg      Config
	logger   *log.Logger
	now      func() time.Time

	state         State
	player        clash.Player
	last          int
	lastTick      time.Time
	lastResetDate string
	dirty         bool
	misses        int
}
