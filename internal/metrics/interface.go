package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncPolls()
	IncPollFailures()
	ObservePollDuration(duration float64)
	IncTrophyChange(category string)
	IncNotifSent()
	IncNotifFailed()
	IncSummaryRuns()
	SetActivePollers(n int)
	SetStartupTime(duration float64)
}

// MetricsStore persists lifetime counters across restarts.
type MetricsStore interface {
	Increment(key string)
	GetAll() (map[string]int, error)
}
