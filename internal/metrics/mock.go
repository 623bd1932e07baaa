package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu            sync.Mutex
	polls         int
	pollFailures  int
	pollDurations []float64
	trophyChanges map[string]int
	notifSent     int
	notifFailed   int
	summaryRuns   int
	activePollers int
	startupTime   float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		pollDurations: make([]float64, 0),
		trophyChanges: make(map[string]int),
	}
}

var _ Metrics = (*Mock)(nil)

func (m *Mock) IncPolls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
}

func (m *Mock) IncPollFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollFailures++
}

func (m *Mock) ObservePollDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollDurations = append(m.pollDurations, duration)
}

func (m *Mock) IncTrophyChange(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trophyChanges[category]++
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) IncSummaryRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryRuns++
}

func (m *Mock) SetActivePollers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activePollers = n
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Polls returns the number of times IncPolls was called.
func (m *Mock) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// PollFailures returns the number of times IncPollFailures was called.
func (m *Mock) PollFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollFailures
}

// TrophyChanges returns how often IncTrophyChange was called for category.
func (m *Mock) TrophyChanges(category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trophyChanges[category]
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}

// SummaryRuns returns the number of times IncSummaryRuns was called.
func (m *Mock) SummaryRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryRuns
}

// ActivePollers returns the last value passed to SetActivePollers.
func (m *Mock) ActivePollers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activePollers
}
