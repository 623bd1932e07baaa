package notifier

import (
	"sync"

	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/trophy"
)

// Kind names a notification method.
type Kind string

const (
	KindTrackingStarted   Kind = "tracking-started"
	KindTrackingFailed    Kind = "tracking-failed"
	KindNotEligible       Kind = "not-eligible"
	KindTrophyChange      Kind = "trophy-change"
	KindEligibilityLost   Kind = "eligibility-lost"
	KindTrackingStopped   Kind = "tracking-stopped"
	KindDailySummary      Kind = "daily-summary"
	KindSummaryIneligible Kind = "summary-ineligible"
)

// Call is one recorded notification. Only the fields relevant to Kind are set.
type Call struct {
	Kind          Kind
	DestinationID string
	Player        clash.Player
	Trophies      int
	Tag           string
	Reason        string
	PlayerName    string
	Event         trophy.Event
	Summary       DailySummary
}

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// SendFunc, when set, decides the error returned for every call.
	SendFunc func(call Call) error

	calls []Call
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

var _ Notifier = (*Mock)(nil)

func (m *Mock) record(c Call) error {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	fn := m.SendFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(c)
	}
	return nil
}

// Calls returns every recorded call, optionally filtered by kind.
func (m *Mock) Calls(kinds ...Kind) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if len(kinds) == 0 {
			out = append(out, c)
			continue
		}
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Count returns how many calls of kind were recorded.
func (m *Mock) Count(kind Kind) int {
	return len(m.Calls(kind))
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Mock) SendTrackingStarted(destinationID string, player clash.Player, trophies int) error {
	return m.record(Call{Kind: KindTrackingStarted, DestinationID: destinationID, Player: player, Trophies: trophies})
}

func (m *Mock) SendTrackingFailed(destinationID, tag, reason string) error {
	return m.record(Call{Kind: KindTrackingFailed, DestinationID: destinationID, Tag: tag, Reason: reason})
}

func (m *Mock) SendNotEligible(destinationID string, player clash.Player) error {
	return m.record(Call{Kind: KindNotEligible, DestinationID: destinationID, Player: player})
}

func (m *Mock) SendTrophyChange(destinationID string, event trophy.Event) error {
	return m.record(Call{Kind: KindTrophyChange, DestinationID: destinationID, Event: event})
}

func (m *Mock) SendEligibilityLost(destinationID string, player clash.Player) error {
	return m.record(Call{Kind: KindEligibilityLost, DestinationID: destinationID, Player: player})
}

func (m *Mock) SendTrackingStopped(destinationID, playerName string) error {
	return m.record(Call{Kind: KindTrackingStopped, DestinationID: destinationID, PlayerName: playerName})
}

func (m *Mock) SendDailySummary(destinationID string, summary DailySummary) error {
	return m.record(Call{Kind: KindDailySummary, DestinationID: destinationID, Summary: summary})
}

func (m *Mock) SendSummaryIneligible(destinationID string, player clash.Player) error {
	return m.record(Call{Kind: KindSummaryIneligible, DestinationID: destinationID, Player: player})
}
