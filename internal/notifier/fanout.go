package notifier

import (
	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/trophy"
)

// Fanout sends every notification to a primary Notifier and mirrors it to
// the others. Only the primary's error is returned; mirror failures are
// logged.
type Fanout struct {
	primary Notifier
	mirrors []Notifier
}

var _ Notifier = (*Fanout)(nil)

func NewFanout(primary Notifier, mirrors ...Notifier) *Fanout {
	return &Fanout{primary: primary, mirrors: mirrors}
}

func (f *Fanout) each(kind string, send func(Notifier) error) error {
	err := send(f.primary)
	for _, m := range f.mirrors {
		if mErr := send(m); mErr != nil {
			log.Warn("Mirror notification failed", "kind", kind, "error", mErr)
		}
	}
	return err
}

func (f *Fanout) SendTrackingStarted(destinationID string, player clash.Player, trophies int) error {
	return f.each("tracking-started", func(n Notifier) error { return n.SendTrackingStarted(destinationID, player, trophies) })
}

func (f *Fanout) SendTrackingFailed(destinationID, tag, reason string) error {
	return f.each("tracking-failed", func(n Notifier) error { return n.SendTrackingFailed(destinationID, tag, reason) })
}

func (f *Fanout) SendNotEligible(destinationID string, player clash.Player) error {
	return f.each("not-eligible", func(n Notifier) error { return n.SendNotEligible(destinationID, player) })
}

func (f *Fanout) SendTrophyChange(destinationID string, event trophy.Event) error {
	return f.each("trophy-change", func(n Notifier) error { return n.SendTrophyChange(destinationID, event) })
}

func (f *Fanout) SendEligibilityLost(destinationID string, player clash.Player) error {
	return f.each("eligibility-lost", func(n Notifier) error { return n.SendEligibilityLost(destinationID, player) })
}

func (f *Fanout) SendTrackingStopped(destinationID, playerName string) error {
	return f.each("tracking-stopped", func(n Notifier) error { return n.SendTrackingStopped(destinationID, playerName) })
}

func (f *Fanout) SendDailySummary(destinationID string, summary DailySummary) error {
	return f.each("daily-summary", func(n Notifier) error { return n.SendDailySummary(destinationID, summary) })
}

func (f *Fanout) SendSummaryIneligible(destinationID string, player clash.Player) error {
	return f.each("summary-ineligible", func(n Notifier) error { return n.SendSummaryIneligible(destinationID, player) })
}
