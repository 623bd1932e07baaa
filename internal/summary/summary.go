// Package summary sends the daily trophy summary for every tracked player
// and applies the daily baseline reset.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/schedule"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

// ErrNotTracked is returned by RunSummary when the requested tag has no
// tracking record.
var ErrNotTracked = errors.New("player is not being tracked")

// Result reports what a summary pass did.
type Result struct {
	Sent       int `json:"sent"`
	Ineligible int `json:"ineligible"`
	Failed     int `json:"failed"`
}

// Scheduler runs one summary pass per day at the schedule's instant.
type Scheduler struct {
	client           clash.Client
	store            tracking.Store
	notifier         notifier.Notifier
	metrics          metrics.Metrics
	pubsub           pubsub.PubSubClient
	schedule         schedule.Daily
	eligibleLeagueID int
	errorDelay       time.Duration
	now              func() time.Time

	// mu serializes passes; lastFiredDate is owned by Run.
	mu            sync.Mutex
	lastFiredDate string
}

// New creates a new Scheduler.
func New(client clash.Client, store tracking.Store, notifier notifier.Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient, sched schedule.Daily, eligibleLeagueID int) *Scheduler {
	return &Scheduler{
		client:           client,
		store:            store,
		notifier:         notifier,
		metrics:          metrics,
		pubsub:           pubsub,
		schedule:         sched,
		eligibleLeagueID: eligibleLeagueID,
		errorDelay:       time.Minute,
		now:              time.Now,
	}
}

// Run sleeps until each scheduled instant and runs the pass, at most once per
// date. It returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info("Daily summary scheduler started", "at", s.schedule.String())
	for {
		now := s.now()
		next := s.schedule.Next(now)
		log.Debug("Next daily summary scheduled", "at", next)
		if !sleep(ctx, next.Sub(now)) {
			log.Info("Daily summary scheduler stopped")
			return
		}

		fired := s.now()
		date := s.schedule.ResetDate(fired)
		if date == s.lastFiredDate {
			continue
		}
		if !s.fire(ctx, date, fired) {
			log.Info("Daily summary scheduler stopped")
			return
		}
	}
}

// fire runs the pass for date, retrying after errorDelay until it succeeds
// or the next occurrence has begun. It returns false when ctx is cancelled.
func (s *Scheduler) fire(ctx context.Context, date string, at time.Time) bool {
	for {
		res, err := s.runPass(ctx, "", true, at)
		if err == nil {
			s.lastFiredDate = date
			log.Info("Daily summary completed", "date", date, "sent", res.Sent, "ineligible", res.Ineligible, "failed", res.Failed)
			return true
		}
		log.Error("Daily summary pass failed", "date", date, "error", err)
		if !sleep(ctx, s.errorDelay) {
			return false
		}
		if s.schedule.ResetDate(s.now()) != date {
			log.Warn("Giving up on daily summary, next occurrence reached", "date", date)
			return true
		}
	}
}

// RunSummary runs a pass on demand, for one tag or for every record when tag
// is empty. The baseline is only reset when called within the scheduled
// minute.
func (s *Scheduler) RunSummary(ctx context.Context, tag string) (Result, error) {
	now := s.now()
	return s.runPass(ctx, clash.NormalizeTag(tag), s.schedule.IsInstant(now), now)
}

func (s *Scheduler) runPass(ctx context.Context, tag string, atInstant bool, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ListTracking()
	if err != nil {
		return Result{}, fmt.Errorf("failed to list tracked players: %w", err)
	}
	if tag != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.PlayerTag == tag {
				filtered = append(filtered, r)
			}
		}
		records = filtered
		if len(records) == 0 {
			return Result{}, ErrNotTracked
		}
	}

	s.metrics.IncSummaryRuns()
	log.Info("Running daily summary", "records", len(records), "at_instant", atInstant)

	var (
		res       Result
		resetDate = s.schedule.ResetDate(now)
		players   = make(map[string]clash.Player)
	)
	for _, r := range records {
		player, ok := players[r.PlayerTag]
		if !ok {
			player, err = s.client.GetPlayer(ctx, r.PlayerTag)
			if err != nil {
				log.Error("Failed to fetch player for summary", "tag", r.PlayerTag, "destination", r.DestinationID, "error", err)
				res.Failed++
				continue
			}
			players[r.PlayerTag] = player
		}

		if !player.InLeague(s.eligibleLeagueID) {
			if err := s.notifier.SendSummaryIneligible(r.DestinationID, player); err != nil {
				log.Error("Failed to send summary ineligible notice", "tag", r.PlayerTag, "error", err)
			}
			res.Ineligible++
			continue
		}

		if err := s.summarize(ctx, r, player, atInstant, resetDate, now); err != nil {
			log.Error("Failed to summarize player", "tag", r.PlayerTag, "destination", r.DestinationID, "error", err)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res, nil
}

func (s *Scheduler) summarize(ctx context.Context, r tracking.TrackedPlayer, player clash.Player, atInstant bool, resetDate string, now time.Time) error {
	start, first := StartOfDay(r, atInstant, resetDate)
	summary := notifier.DailySummary{
		PlayerName:    player.Name,
		Tag:           clash.DisplayTag(r.PlayerTag),
		LeagueIconURL: player.LeagueIcon(),
		Start:         start,
		Current:       player.Trophies,
		FirstSummary:  first,
		At:            now,
	}
	if player.Clan != nil {
		summary.ClanName = player.Clan.Name
	}

	sendErr := s.notifier.SendDailySummary(r.DestinationID, summary)

	// The reset happens even when the message could not be delivered.
	var storeErr error
	if atInstant {
		storeErr = s.store.ResetBaseline(r.PlayerTag, r.DestinationID, player.Trophies, resetDate)
	} else if r.DailyBaseline == nil {
		storeErr = s.store.SeedBaseline(r.PlayerTag, r.DestinationID)
	}

	if err := s.pubsub.SendMessage(ctx, pubsub.EventDailySummary, pubsub.DailySummaryMessage{
		Tag:           r.PlayerTag,
		PlayerName:    player.Name,
		DestinationID: r.DestinationID,
		Start:         start,
		Current:       player.Trophies,
		Delta:         summary.Delta(),
		FirstSummary:  first,
		Date:          resetDate,
		SentAt:        now,
	}); err != nil {
		log.Warn("Failed to publish daily summary", "tag", r.PlayerTag, "error", err)
	}

	return errors.Join(sendErr, storeErr)
}

// StartOfDay returns the trophy count the summarized day started with, and
// whether it is a stand-in because no daily reset has happened yet.
//
// At the reset instant the record may already carry today's reset, applied by
// the poller moments earlier; the day that just ended then started at the
// previous baseline.
func StartOfDay(r tracking.TrackedPlayer, atInstant bool, resetDate string) (int, bool) {
	if atInstant && r.BaselineDate != "" && r.BaselineDate == resetDate {
		if r.PreviousBaseline == nil {
			return 0, true
		}
		return *r.PreviousBaseline, false
	}
	if r.BaselineDate == "" || r.DailyBaseline == nil {
		return 0, true
	}
	return *r.DailyBaseline, false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
