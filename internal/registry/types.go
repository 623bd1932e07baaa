package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

var (
	// ErrAlreadyTracking is returned by Start when the pair is already tracked.
	ErrAlreadyTracking = errors.New("player is already tracked in this channel")
	// ErrNotTracking is returned when there is nothing to cancel.
	ErrNotTracking = errors.New("player is not being tracked")
	// ErrStarting is returned by Cancel while Start is still initializing
	// the pair.
	ErrStarting = errors.New("tracking is still starting")
)

// Runner is one tracking loop. Initialize is called synchronously by Start;
// Run must call it itself when it was not.
type Runner interface {
	Initialize(ctx context.Context) error
	Run(ctx context.Context)
}

// Factory builds the Runner for a stored record.
type Factory func(record tracking.TrackedPlayer) Runner

// DestinationResolver reports whether a destination still exists.
type DestinationResolver interface {
	DestinationExists(destinationID string) bool
}

// Registry owns the running trackers, one per (tag, destination) pair.
type Registry struct {
	store    tracking.Store
	factory  Factory
	resolver DestinationResolver
	metrics  metrics.Metrics

	root     context.Context
	shutdown context.CancelCauseFunc

	mu      sync.Mutex
	handles map[tracking.Key]*handle
	pending map[tracking.Key]struct{}
}

type handle struct {
	record tracking.TrackedPlayer
	cancel context.CancelFunc
	done   chan struct{}
}
