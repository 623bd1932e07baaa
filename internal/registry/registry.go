// Package registry keeps track of the running trophy pollers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/poller"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

// New creates an empty Registry. A nil resolver treats every destination as
// existing.
func New(store tracking.Store, factory Factory, resolver DestinationResolver, metrics metrics.Metrics) *Registry {
	root, shutdown := context.WithCancelCause(context.Background())
	return &Registry{
		store:    store,
		factory:  factory,
		resolver: resolver,
		metrics:  metrics,
		root:     root,
		shutdown: shutdown,
		handles:  make(map[tracking.Key]*handle),
		pending:  make(map[tracking.Key]struct{}),
	}
}

// Start stores a new tracking record, initializes its poller and launches
// the polling loop. When initialization fails the record is removed again
// and the error is returned.
func (r *Registry) Start(ctx context.Context, tag, ownerID, destinationID string) (tracking.TrackedPlayer, error) {
	key := tracking.Key{Tag: clash.NormalizeTag(tag), DestinationID: destinationID}

	r.mu.Lock()
	_, running := r.handles[key]
	_, starting := r.pending[key]
	if running || starting {
		r.mu.Unlock()
		return tracking.TrackedPlayer{}, ErrAlreadyTracking
	}
	r.pending[key] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
	}()

	record, err := r.store.InsertTracking(key.Tag, ownerID, destinationID)
	if errors.Is(err, tracking.ErrDuplicateTracking) {
		return tracking.TrackedPlayer{}, ErrAlreadyTracking
	}
	if err != nil {
		return tracking.TrackedPlayer{}, fmt.Errorf("failed to store tracking record: %w", err)
	}

	runner := r.factory(record)
	if err := runner.Initialize(ctx); err != nil {
		if rmErr := r.store.RemoveTracking(record.PlayerTag, record.DestinationID); rmErr != nil {
			log.Error("Failed to roll back tracking record", "tag", record.PlayerTag, "destination", record.DestinationID, "error", rmErr)
		}
		return tracking.TrackedPlayer{}, fmt.Errorf("failed to start tracking %s: %w", clash.DisplayTag(record.PlayerTag), err)
	}

	r.launch(record, runner)
	log.Info("Started tracking", "tag", record.PlayerTag, "owner", ownerID, "destination", destinationID)
	return record, nil
}

// Cancel stops the poller for the pair, waits for it to finish and removes
// the store record. A pair whose Start is still initializing is left alone
// and ErrStarting is returned.
func (r *Registry) Cancel(ctx context.Context, tag, destinationID string) error {
	key := tracking.Key{Tag: clash.NormalizeTag(tag), DestinationID: destinationID}

	r.mu.Lock()
	h := r.handles[key]
	_, starting := r.pending[key]
	r.mu.Unlock()

	if starting {
		return ErrStarting
	}
	if h != nil {
		h.cancel()
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		r.forget(key, h)
	}

	err := r.store.RemoveTracking(key.Tag, key.DestinationID)
	if errors.Is(err, tracking.ErrNotFound) {
		if h == nil {
			return ErrNotTracking
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove tracking record: %w", err)
	}
	log.Info("Stopped tracking", "tag", key.Tag, "destination", key.DestinationID)
	return nil
}

// CancelByOwner cancels the tracking of tag started by ownerID, wherever it
// posts to, and returns the removed record.
func (r *Registry) CancelByOwner(ctx context.Context, tag, ownerID string) (tracking.TrackedPlayer, error) {
	record, err := r.store.FindTrackingByOwner(clash.NormalizeTag(tag), ownerID)
	if errors.Is(err, tracking.ErrNotFound) {
		return tracking.TrackedPlayer{}, ErrNotTracking
	}
	if err != nil {
		return tracking.TrackedPlayer{}, fmt.Errorf("failed to look up tracking record: %w", err)
	}
	if err := r.Cancel(ctx, record.PlayerTag, record.DestinationID); err != nil {
		return tracking.TrackedPlayer{}, err
	}
	return record, nil
}

// ResumeAll launches a poller for every stored record. Records whose
// destination no longer exists are skipped with a warning. It returns the
// number of pollers launched.
func (r *Registry) ResumeAll(ctx context.Context) (int, error) {
	records, err := r.store.ListTracking()
	if err != nil {
		return 0, fmt.Errorf("failed to list tracked players: %w", err)
	}

	resumed := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return resumed, ctx.Err()
		}
		if r.resolver != nil && !r.resolver.DestinationExists(record.DestinationID) {
			log.Warn("Skipping tracked player, destination no longer exists", "tag", record.PlayerTag, "destination", record.DestinationID)
			continue
		}

		r.mu.Lock()
		_, running := r.handles[record.Key()]
		r.mu.Unlock()
		if running {
			continue
		}

		r.launch(record, r.factory(record))
		resumed++
	}
	log.Info("Resumed tracked players", "resumed", resumed, "stored", len(records))
	return resumed, nil
}

// Shutdown stops every poller without removing its record and waits until
// they all returned or ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.shutdown(poller.ErrShutdown)

	r.mu.Lock()
	handles := make([]*handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		select {
		case <-h.done:
		case <-ctx.Done():
			return fmt.Errorf("pollers still running at shutdown: %w", ctx.Err())
		}
	}
	log.Info("All pollers stopped", "count", len(handles))
	return nil
}

// Active returns the records of the running pollers, ordered by tag and
// destination.
func (r *Registry) Active() []tracking.TrackedPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tracking.TrackedPlayer, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerTag != out[j].PlayerTag {
			return out[i].PlayerTag < out[j].PlayerTag
		}
		return out[i].DestinationID < out[j].DestinationID
	})
	return out
}

// IsTracking reports whether a poller is running for the pair.
func (r *Registry) IsTracking(tag, destinationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[tracking.Key{Tag: clash.NormalizeTag(tag), DestinationID: destinationID}]
	return ok
}

func (r *Registry) launch(record tracking.TrackedPlayer, runner Runner) {
	ctx, cancel := context.WithCancel(r.root)
	h := &handle{record: record, cancel: cancel, done: make(chan struct{})}
	key := record.Key()

	r.mu.Lock()
	r.handles[key] = h
	r.metrics.SetActivePollers(len(r.handles))
	r.mu.Unlock()

	go func() {
		defer close(h.done)
		defer cancel()
		runner.Run(ctx)
		if r.forget(key, h) && ctx.Err() == nil {
			log.Info("Poller terminated", "tag", key.Tag, "destination", key.DestinationID)
		}
	}()
}

// forget drops the handle if it is still the registered one.
func (r *Registry) forget(key tracking.Key, h *handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[key] != h {
		return false
	}
	delete(r.handles, key)
	r.metrics.SetActivePollers(len(r.handles))
	return true
}
