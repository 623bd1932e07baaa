package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	Polls              prometheus.Counter
	PollFailures       prometheus.Counter
	PollDuration       prometheus.Histogram
	TrophyChanges      *prometheus.CounterVec
	NotifSent          prometheus.Counter
	NotifFailed        prometheus.Counter
	SummaryRuns        prometheus.Counter
	ActivePollers      prometheus.Gauge
	StartupTimeSeconds prometheus.Gauge
}

// Keys of the lifetime counters kept in the metrics table.
const (
	KeyPolls          = "polls"
	KeyPollFailures   = "poll_failures"
	KeyTrophyChanges  = "trophy_changes"
	KeyNotifSent      = "notifications_sent"
	KeyNotifFailed    = "notifications_failed"
	KeySummaryRuns    = "summary_runs"
	keyCategoryPrefix = "trophy_change:"
)
