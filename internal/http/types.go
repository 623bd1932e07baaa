package http

import (
	"context"
	"net/http"

	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/summary"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

// Summarizer runs a daily summary pass on demand.
type Summarizer interface {
	RunSummary(ctx context.Context, tag string) (summary.Result, error)
}

// ActiveLister lists the records with a running poller.
type ActiveLister interface {
	Active() []tracking.TrackedPlayer
}

type Server struct {
	Store          tracking.Store
	MetricsStore   metrics.MetricsStore
	MetricsHandler http.Handler
	Registry       ActiveLister
	Summary        Summarizer
	Router         *http.ServeMux
}

// trackedPlayerResponse is one entry of the /tracked listing.
type trackedPlayerResponse struct {
	tracking.TrackedPlayer
	Active bool `json:"active"`
}

// pushRequest is the envelope of a Pub/Sub push delivery.
type pushRequest struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}
