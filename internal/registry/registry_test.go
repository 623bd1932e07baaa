package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/poller"
	"github.com/mauv0809/legend-tracker/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner blocks in Run until cancelled or told to exit.
type fakeRunner struct {
	initErr error
	exit    chan struct{}

	mu          sync.Mutex
	initialized bool
	cause       error
}

func (f *fakeRunner) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return f.initErr
}

func (f *fakeRunner) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		f.mu.Lock()
		f.cause = context.Cause(ctx)
		f.mu.Unlock()
	case <-f.exit:
	}
}

func (f *fakeRunner) stoppedBy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cause
}

type resolverFunc func(string) bool

func (f resolverFunc) DestinationExists(id string) bool { return f(id) }

type fixture struct {
	store    *tracking.MockStore
	metrics  *metrics.Mock
	registry *Registry

	mu      sync.Mutex
	runners map[tracking.Key]*fakeRunner
	initErr error
}

func newFixture(t *testing.T, resolver DestinationResolver) *fixture {
	t.Helper()
	f := &fixture{
		store:   tracking.NewMock(),
		metrics: metrics.NewMock(),
		runners: make(map[tracking.Key]*fakeRunner),
	}
	f.registry = New(f.store, func(record tracking.TrackedPlayer) Runner {
		f.mu.Lock()
		defer f.mu.Unlock()
		r := &fakeRunner{initErr: f.initErr, exit: make(chan struct{})}
		f.runners[record.Key()] = r
		return r
	}, resolver, f.metrics)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.registry.Shutdown(ctx)
	})
	return f
}

func (f *fixture) runner(tag, dest string) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runners[tracking.Key{Tag: tag, DestinationID: dest}]
}

func TestStart(t *testing.T) {
	f := newFixture(t, nil)

	record, err := f.registry.Start(context.Background(), "#abc", "owner-1", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC", record.PlayerTag)
	assert.True(t, f.runner("ABC", "chan-1").initialized)
	assert.True(t, f.registry.IsTracking("#ABC", "chan-1"))
	assert.Equal(t, 1, f.metrics.ActivePollers())

	_, err = f.store.GetTracking("ABC", "chan-1")
	assert.NoError(t, err)

	_, err = f.registry.Start(context.Background(), "ABC", "owner-2", "chan-1")
	assert.ErrorIs(t, err, ErrAlreadyTracking)

	_, err = f.registry.Start(context.Background(), "ABC", "owner-2", "chan-2")
	assert.NoError(t, err, "the same tag may be tracked into another destination")
	assert.Len(t, f.registry.Active(), 2)
}

func TestStart_DuplicateInStore(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", OwnerID: "owner-1", DestinationID: "chan-1"})

	_, err := f.registry.Start(context.Background(), "ABC", "owner-1", "chan-1")
	assert.ErrorIs(t, err, ErrAlreadyTracking)
	assert.Empty(t, f.registry.Active())
}

func TestStart_InitializationFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.initErr = poller.ErrNotEligible

	_, err := f.registry.Start(context.Background(), "ABC", "owner-1", "chan-1")
	assert.ErrorIs(t, err, poller.ErrNotEligible)

	_, err = f.store.GetTracking("ABC", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)
	assert.False(t, f.registry.IsTracking("ABC", "chan-1"))
	assert.Equal(t, []tracking.Key{{Tag: "ABC", DestinationID: "chan-1"}}, f.store.RemoveTrackingCalls)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.registry.Start(context.Background(), "ABC", "owner-1", "chan-1")
	require.NoError(t, err)
	runner := f.runner("ABC", "chan-1")

	require.NoError(t, f.registry.Cancel(context.Background(), "#ABC", "chan-1"))
	assert.Equal(t, context.Canceled, runner.stoppedBy())
	assert.False(t, f.registry.IsTracking("ABC", "chan-1"))
	assert.Equal(t, 0, f.metrics.ActivePollers())

	_, err = f.store.GetTracking("ABC", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	assert.ErrorIs(t, f.registry.Cancel(context.Background(), "ABC", "chan-1"), ErrNotTracking)
}

func TestCancel_SelfTerminatedPollerKeepsRecordUntilCancelled(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.registry.Start(context.Background(), "ABC", "owner-1", "chan-1")
	require.NoError(t, err)

	close(f.runner("ABC", "chan-1").exit)
	require.Eventually(t, func() bool { return !f.registry.IsTracking("ABC", "chan-1") }, time.Second, time.Millisecond)

	_, err = f.store.GetTracking("ABC", "chan-1")
	require.NoError(t, err, "a poller that stops by itself keeps its record")

	require.NoError(t, f.registry.Cancel(context.Background(), "ABC", "chan-1"))
	_, err = f.store.GetTracking("ABC", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

func TestCancelByOwner(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.registry.Start(context.Background(), "ABC", "owner-1", "chan-1")
	require.NoError(t, err)

	_, err = f.registry.CancelByOwner(context.Background(), "ABC", "owner-2")
	assert.ErrorIs(t, err, ErrNotTracking)

	record, err := f.registry.CancelByOwner(context.Background(), "#abc", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", record.DestinationID)
	assert.Empty(t, f.registry.Active())
}

func TestCancel_ContextExpires(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1"})

	// A runner that ignores cancellation until released.
	release := make(chan struct{})
	f.registry.launch(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1"}, runnerFunc(func(ctx context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.registry.Cancel(ctx, "ABC", "chan-1"), context.DeadlineExceeded)

	_, err := f.store.GetTracking("ABC", "chan-1")
	assert.NoError(t, err, "the record stays while the poller is still running")
	close(release)
}

func TestCancel_WhileStarting(t *testing.T) {
	store := tracking.NewMock()
	entered := make(chan struct{})
	release := make(chan struct{})
	reg := New(store, func(record tracking.TrackedPlayer) Runner {
		return slowInit{entered: entered, release: release}
	}, nil, metrics.NewMock())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})

	started := make(chan error, 1)
	go func() {
		_, err := reg.Start(context.Background(), "ABC", "owner-1", "chan-1")
		started <- err
	}()
	<-entered

	assert.ErrorIs(t, reg.Cancel(context.Background(), "ABC", "chan-1"), ErrStarting)
	_, err := store.GetTracking("ABC", "chan-1")
	require.NoError(t, err, "the record of a starting poller is kept")

	close(release)
	require.NoError(t, <-started)
	assert.True(t, reg.IsTracking("ABC", "chan-1"))

	require.NoError(t, reg.Cancel(context.Background(), "ABC", "chan-1"))
	_, err = store.GetTracking("ABC", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

// slowInit blocks in Initialize until released.
type slowInit struct {
	entered chan struct{}
	release chan struct{}
}

func (s slowInit) Initialize(ctx context.Context) error {
	close(s.entered)
	<-s.release
	return nil
}

func (s slowInit) Run(ctx context.Context) { <-ctx.Done() }

type runnerFunc func(ctx context.Context)

func (f runnerFunc) Initialize(ctx context.Context) error { return nil }
func (f runnerFunc) Run(ctx context.Context)              { f(ctx) }

func TestResumeAll(t *testing.T) {
	f := newFixture(t, resolverFunc(func(id string) bool { return id != "deleted" }))
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1"})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "DEF", DestinationID: "deleted"})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "GHI", DestinationID: "chan-2"})

	n, err := f.registry.ResumeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active := f.registry.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "ABC", active[0].PlayerTag)
	assert.Equal(t, "GHI", active[1].PlayerTag)
	assert.False(t, f.runner("ABC", "chan-1").initialized, "resumed pollers initialize inside Run")

	_, err = f.store.GetTracking("DEF", "deleted")
	assert.NoError(t, err, "skipped records are not removed")

	n, err = f.registry.ResumeAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "running pollers are not launched twice")
}

func TestResumeAll_StoreError(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.store = failingList{f.store}

	_, err := f.registry.ResumeAll(context.Background())
	assert.Error(t, err)
}

type failingList struct{ tracking.Store }

func (failingList) ListTracking() ([]tracking.TrackedPlayer, error) {
	return nil, errors.New("database is locked")
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1"})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "DEF", DestinationID: "chan-2"})
	_, err := f.registry.ResumeAll(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.registry.Shutdown(ctx))

	assert.ErrorIs(t, f.runner("ABC", "chan-1").stoppedBy(), poller.ErrShutdown)
	require.Eventually(t, func() bool { return len(f.registry.Active()) == 0 }, time.Second, time.Millisecond)

	records, err := f.store.ListTracking()
	require.NoError(t, err)
	assert.Len(t, records, 2, "records stay for the next resume")
}
