package notifier

import (
	"time"

	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/trophy"
)

// Notifier defines a high-level interface for sending notifications about tracking events.
// This decouples the trackers from the specific notification provider (e.g., Discord).
// Every method addresses one destination; failures are returned, never retried.
type Notifier interface {
	SendTrackingStarted(destinationID string, player clash.Player, trophies int) error
	SendTrackingFailed(destinationID, tag, reason string) error
	SendNotEligible(destinationID string, player clash.Player) error
	SendTrophyChange(destinationID string, event trophy.Event) error
	SendEligibilityLost(destinationID string, player clash.Player) error
	SendTrackingStopped(destinationID, playerName string) error
	SendDailySummary(destinationID string, summary DailySummary) error
	SendSummaryIneligible(destinationID string, player clash.Player) error
}

// DailySummary is the content of one daily trophy summary.
type DailySummary struct {
	PlayerName    string
	Tag           string
	ClanName      string
	LeagueIconURL string
	Start         int
	Current       int
	// FirstSummary is set when no daily reset has happened yet, so Start is
	// not a real start-of-day count.
	FirstSummary bool
	At           time.Time
}

// Delta is the change over the summarized day.
func (s DailySummary) Delta() int {
	return s.Current - s.Start
}
