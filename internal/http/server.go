package http

import (
	"net/http"

	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

func NewServer(store tracking.Store, metricsStore metrics.MetricsStore, metricsHandler http.Handler, registry ActiveLister, summary Summarizer) *Server {
	server := &Server{
		Store:          store,
		MetricsStore:   metricsStore,
		MetricsHandler: metricsHandler,
		Registry:       registry,
		Summary:        summary,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/stats", Chain(s.StatsHandler(), paramsMiddleware))
	s.Router.Handle("/tracked", Chain(s.TrackedHandler(), paramsMiddleware))
	s.Router.Handle("/summary", Chain(s.SummaryHandler(), paramsMiddleware))
	s.Router.Handle("/pubsub/push", Chain(s.PubSubPushHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
