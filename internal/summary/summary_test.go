package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/schedule"
	"github.com/mauv0809/legend-tracker/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legendID = 29000022

var (
	atReset  = time.Date(2025, 3, 1, 22, 0, 30, 0, time.UTC)
	midday   = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	today    = "2025-03-01"
	lastDate = "2025-02-28"
)

func intPtr(i int) *int { return &i }

type fixture struct {
	client    *clash.MockClient
	store     *tracking.MockStore
	notifier  *notifier.Mock
	metrics   *metrics.Mock
	pubsub    *pubsub.MockPubSubClient
	scheduler *Scheduler

	mu       sync.Mutex
	trophies map[string]int
	unranked map[string]bool
	failing  map[string]error
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		client:   clash.NewMockClient(),
		store:    tracking.NewMock(),
		notifier: notifier.NewMock(),
		metrics:  metrics.NewMock(),
		pubsub:   pubsub.NewMock(),
		trophies: make(map[string]int),
		unranked: make(map[string]bool),
		failing:  make(map[string]error),
	}
	f.client.GetPlayerFunc = func(ctx context.Context, tag string) (clash.Player, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.failing[tag]; err != nil {
			return clash.Player{}, err
		}
		p := clash.Player{Tag: clash.DisplayTag(tag), Name: "Chief " + tag, Trophies: f.trophies[tag], Clan: &clash.Clan{Name: "Warriors"}}
		if !f.unranked[tag] {
			p.League = &clash.League{ID: legendID, Name: "Legend League", IconURLs: clash.IconURLs{Small: "https://example.com/legend.png"}}
		}
		return p, nil
	}
	f.scheduler = New(f.client, f.store, f.notifier, f.metrics, f.pubsub, schedule.NewDaily(22, 0, time.UTC), legendID)
	f.scheduler.now = func() time.Time { return now }
	return f
}

func (f *fixture) setTrophies(tag string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trophies[tag] = n
}

func (f *fixture) record(t *testing.T, tag, dest string) tracking.TrackedPlayer {
	t.Helper()
	r, err := f.store.GetTracking(tag, dest)
	require.NoError(t, err)
	return r
}

func TestRunSummary_AtResetInstant(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", LastTrophyCount: intPtr(5090), DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.setTrophies("ABC", 5100)

	res, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1}, res)

	calls := f.notifier.Calls(notifier.KindDailySummary)
	require.Len(t, calls, 1)
	s := calls[0].Summary
	assert.Equal(t, "chan-1", calls[0].DestinationID)
	assert.Equal(t, 5000, s.Start)
	assert.Equal(t, 5100, s.Current)
	assert.Equal(t, 100, s.Delta())
	assert.False(t, s.FirstSummary)
	assert.Equal(t, "Warriors", s.ClanName)
	assert.Equal(t, "#ABC", s.Tag)
	assert.Equal(t, "https://example.com/legend.png", s.LeagueIconURL)

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5100, *r.DailyBaseline)
	assert.Equal(t, 5000, *r.PreviousBaseline)
	assert.Equal(t, today, r.BaselineDate)
	assert.Equal(t, 1, f.metrics.SummaryRuns())

	published := f.pubsub.Calls()
	require.Len(t, published, 1)
	assert.Equal(t, pubsub.EventDailySummary, published[0].Topic)
	msg := published[0].Data.(pubsub.DailySummaryMessage)
	assert.Equal(t, 100, msg.Delta)
	assert.Equal(t, today, msg.Date)
}

func TestRunSummary_ResetKeepsNewerPolledCount(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", LastTrophyCount: intPtr(5090), DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	// The poller records an attack right after the summary fetched the player.
	f.client.GetPlayerFunc = func(ctx context.Context, tag string) (clash.Player, error) {
		require.NoError(t, f.store.UpdateTrophy(tag, "chan-1", 5132, ""))
		return clash.Player{Tag: clash.DisplayTag(tag), Name: "Chief", Trophies: 5100, League: &clash.League{ID: legendID, Name: "Legend League"}}, nil
	}

	_, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5132, *r.LastTrophyCount)
	assert.Equal(t, 5100, *r.DailyBaseline)
	assert.Equal(t, today, r.BaselineDate)
	require.Len(t, f.store.ResetBaselineCalls, 1)
}

func TestRunSummary_PollerResetFirst(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", LastTrophyCount: intPtr(5100), DailyBaseline: intPtr(5100), PreviousBaseline: intPtr(5000), BaselineDate: today})
	f.setTrophies("ABC", 5100)

	_, err := f.scheduler.RunSummary(context.Background(), "ABC")
	require.NoError(t, err)

	calls := f.notifier.Calls(notifier.KindDailySummary)
	require.Len(t, calls, 1)
	assert.Equal(t, 5000, calls[0].Summary.Start, "the ended day started at the previous baseline")
	assert.Equal(t, 100, calls[0].Summary.Delta())

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5000, *r.PreviousBaseline, "re-applying the same date keeps the previous baseline")
}

func TestRunSummary_FirstSummary(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", LastTrophyCount: intPtr(5040), DailyBaseline: intPtr(0)})
	f.setTrophies("ABC", 5040)

	_, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)

	calls := f.notifier.Calls(notifier.KindDailySummary)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Summary.FirstSummary)
	assert.Equal(t, 0, calls[0].Summary.Start)

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5040, *r.DailyBaseline)
	assert.Nil(t, r.PreviousBaseline)
}

func TestRunSummary_IneligibleIsSkipped(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "LOW", DestinationID: "chan-1", DailyBaseline: intPtr(4900), BaselineDate: lastDate})
	f.setTrophies("LOW", 4800)
	f.unranked["LOW"] = true

	res, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Result{Ineligible: 1}, res)

	assert.Equal(t, 1, f.notifier.Count(notifier.KindSummaryIneligible))
	assert.Zero(t, f.notifier.Count(notifier.KindDailySummary))
	assert.Zero(t, f.store.Writes())
	assert.Empty(t, f.pubsub.Calls())
}

func TestRunSummary_RecordErrorDoesNotAbortPass(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "BAD", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "GOOD", DestinationID: "chan-2", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.failing["BAD"] = &clash.APIError{StatusCode: 503, Reason: "inMaintenance"}
	f.setTrophies("GOOD", 5010)

	res, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Failed: 1}, res)

	calls := f.notifier.Calls(notifier.KindDailySummary)
	require.Len(t, calls, 1)
	assert.Equal(t, "chan-2", calls[0].DestinationID)
}

func TestRunSummary_SendFailureStillResets(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.setTrophies("ABC", 5020)
	f.notifier.SendFunc = func(call notifier.Call) error { return errors.New("channel deleted") }

	res, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5020, *r.DailyBaseline)
	assert.Equal(t, today, r.BaselineDate)
}

func TestRunSummary_OnDemand(t *testing.T) {
	f := newFixture(t, midday)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "NEW", DestinationID: "chan-2"})
	f.setTrophies("ABC", 4990)
	f.setTrophies("NEW", 5300)

	res, err := f.scheduler.RunSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)

	assert.Zero(t, f.store.Writes(), "the baseline is not reset outside the scheduled minute")
	assert.Equal(t, []tracking.Key{{Tag: "NEW", DestinationID: "chan-2"}}, f.store.SeedBaselineCalls)

	calls := f.notifier.Calls(notifier.KindDailySummary)
	require.Len(t, calls, 2)
	assert.Equal(t, -10, calls[0].Summary.Delta())
	assert.True(t, calls[1].Summary.FirstSummary)

	r := f.record(t, "NEW", "chan-2")
	require.NotNil(t, r.DailyBaseline)
	assert.Equal(t, 0, *r.DailyBaseline)
}

func TestRunSummary_SingleTag(t *testing.T) {
	f := newFixture(t, midday)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-2", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "XYZ", DestinationID: "chan-3", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.setTrophies("ABC", 5050)

	res, err := f.scheduler.RunSummary(context.Background(), "#abc")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, f.client.Calls(), "players are fetched once per pass")

	_, err = f.scheduler.RunSummary(context.Background(), "#NOPE")
	assert.ErrorIs(t, err, ErrNotTracked)
}

type flakyList struct {
	tracking.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyList) ListTracking() ([]tracking.TrackedPlayer, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("database is locked")
	}
	s.mu.Unlock()
	return s.Store.ListTracking()
}

func TestRun_RetriesFailedPassSameDay(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.setTrophies("ABC", 5100)
	f.scheduler.store = &flakyList{Store: f.store, failures: 1}
	f.scheduler.errorDelay = 10 * time.Millisecond

	var (
		mu    sync.Mutex
		calls int
	)
	times := []time.Time{
		time.Date(2025, 3, 1, 21, 59, 59, 990_000_000, time.UTC),
		time.Date(2025, 3, 1, 22, 0, 0, 500_000_000, time.UTC),
	}
	f.scheduler.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		calls++
		if i < len(times) {
			return times[i]
		}
		return time.Date(2025, 3, 1, 22, 1, 0, 0, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.notifier.Count(notifier.KindDailySummary) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5100, *r.DailyBaseline)
	assert.Equal(t, today, r.BaselineDate)
	assert.Equal(t, 5000, f.notifier.Calls(notifier.KindDailySummary)[0].Summary.Start)
}

func TestRun_StopsRetryingAtNextOccurrence(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.scheduler.store = &flakyList{Store: f.store, failures: 1000}
	f.scheduler.errorDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		mu    sync.Mutex
		calls int
	)
	f.scheduler.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return time.Date(2025, 3, 1, 21, 59, 59, 990_000_000, time.UTC)
		}
		if calls == 2 {
			return time.Date(2025, 3, 1, 22, 0, 0, 500_000_000, time.UTC)
		}
		// The day has rolled over; stop here once the retry gave up.
		if calls >= 4 {
			cancel()
		}
		return time.Date(2025, 3, 2, 22, 0, 1, 0, time.UTC)
	}

	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler kept retrying a past date")
	}
	assert.Zero(t, f.notifier.Count(notifier.KindDailySummary))
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name      string
		record    tracking.TrackedPlayer
		atInstant bool
		start     int
		first     bool
	}{
		{"yesterday's baseline", tracking.TrackedPlayer{DailyBaseline: intPtr(5000), BaselineDate: lastDate}, true, 5000, false},
		{"already reset today", tracking.TrackedPlayer{DailyBaseline: intPtr(5100), PreviousBaseline: intPtr(5000), BaselineDate: today}, true, 5000, false},
		{"reset today without previous", tracking.TrackedPlayer{DailyBaseline: intPtr(5100), BaselineDate: today}, true, 0, true},
		{"on demand after reset", tracking.TrackedPlayer{DailyBaseline: intPtr(5100), PreviousBaseline: intPtr(5000), BaselineDate: today}, false, 5100, false},
		{"never reset", tracking.TrackedPlayer{DailyBaseline: intPtr(0)}, false, 0, true},
		{"no baseline", tracking.TrackedPlayer{}, true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, first := StartOfDay(tt.record, tt.atInstant, today)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.first, first)
		})
	}
}

func TestRun_FiresAtResetInstant(t *testing.T) {
	f := newFixture(t, atReset)
	f.store.Put(tracking.TrackedPlayer{PlayerTag: "ABC", DestinationID: "chan-1", DailyBaseline: intPtr(5000), BaselineDate: lastDate})
	f.setTrophies("ABC", 5100)

	var (
		mu    sync.Mutex
		calls int
	)
	times := []time.Time{
		time.Date(2025, 3, 1, 21, 59, 59, 990_000_000, time.UTC),
		time.Date(2025, 3, 1, 22, 0, 0, 500_000_000, time.UTC),
	}
	f.scheduler.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		calls++
		if i < len(times) {
			return times[i]
		}
		return time.Date(2025, 3, 1, 22, 0, 1, 0, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.notifier.Count(notifier.KindDailySummary) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	r := f.record(t, "ABC", "chan-1")
	assert.Equal(t, 5100, *r.DailyBaseline)
	assert.Equal(t, today, r.BaselineDate)
	assert.Equal(t, 1, f.metrics.SummaryRuns())
}
