package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legend_polls_total",
			Help: "The total number of player fetches made by the trophy pollers.",
		}),
		PollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legend_poll_failures_total",
			Help: "The total number of player fetches that failed.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "legend_poll_duration_seconds",
			Help:    "The duration of a single poll iteration.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TrophyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "legend_trophy_changes_total",
			Help: "The total number of detected trophy changes by category.",
		}, []string{"category"}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legend_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legend_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}),
		SummaryRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legend_summary_runs_total",
			Help: "The total number of daily summary passes.",
		}),
		ActivePollers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "legend_active_pollers",
			Help: "The number of running trophy pollers.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "legend_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Polls,
		s.PollFailures,
		s.PollDuration,
		s.TrophyChanges,
		s.NotifSent,
		s.NotifFailed,
		s.SummaryRuns,
		s.ActivePollers,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncPolls() {
	s.Polls.Inc()
}

func (s *Service) IncPollFailures() {
	s.PollFailures.Inc()
}

func (s *Service) ObservePollDuration(duration float64) {
	s.PollDuration.Observe(duration)
}

func (s *Service) IncTrophyChange(category string) {
	s.TrophyChanges.WithLabelValues(category).Inc()
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) IncSummaryRuns() {
	s.SummaryRuns.Inc()
}

func (s *Service) SetActivePollers(n int) {
	s.ActivePollers.Set(float64(n))
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
