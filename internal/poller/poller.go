package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/metrics"
	"github.com/mauv0809/legend-tracker/internal/pubsub"
	"github.com/mauv0809/legend-tracker/internal/tracking"
	"github.com/mauv0809/legend-tracker/internal/trophy"
	"github.com/sethvargo/go-retry"
)

// New creates a Poller for a stored tracking record.
func New(record tracking.TrackedPlayer, client clash.Client, store tracking.Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient, cfg Config) *Poller {
	return &Poller{
		tag:           record.PlayerTag,
		ownerID:       record.OwnerID,
		destinationID: record.DestinationID,
		client:        client,
		store:         store,
		notifier:      notifier,
		metrics:       metrics,
		pubsub:        pubsub,
		cfg:           cfg,
		logger:        log.With("tag", record.PlayerTag, "destination", record.DestinationID),
		now:           time.Now,
		state:         StateInitializing,
	}
}

// Key returns the tracking key the poller serves.
func (p *Poller) Key() tracking.Key {
	return tracking.Key{Tag: p.tag, DestinationID: p.destinationID}
}

// State returns the current lifecycle state. It must only be called from
// the goroutine running the poller, or after Run returned.
func (p *Poller) State() State {
	return p.state
}

// Initialize fetches the player with retries, checks eligibility and
// establishes the comparison baseline. It sends exactly one notification:
// tracking started, not eligible, or tracking failed.
func (p *Poller) Initialize(ctx context.Context) error {
	p.state = StateInitializing

	player, err := p.fetchWithRetry(ctx)
	if err != nil {
		p.state = StateTerminated
		if ctx.Err() != nil {
			p.logger.Info("Initialization cancelled")
			p.stop(ctx)
			return ctx.Err()
		}
		reason := "Clash of Clans API unavailable"
		if errors.Is(err, clash.ErrPlayerNotFound) {
			reason = "player not found"
		}
		p.logger.Error("Failed to initialize tracking", "error", err)
		p.notify("tracking-failed", p.notifier.SendTrackingFailed(p.destinationID, p.tag, reason))
		return fmt.Errorf("initialize %s: %w", p.tag, err)
	}
	p.player = player

	if !player.InLeague(p.cfg.EligibleLeagueID) {
		p.state = StateTerminated
		p.logger.Info("Player is not eligible", "league", player.LeagueName())
		p.notify("not-eligible", p.notifier.SendNotEligible(p.destinationID, player))
		return ErrNotEligible
	}

	record, err := p.store.GetTracking(p.tag, p.destinationID)
	if err != nil {
		p.state = StateTerminated
		p.logger.Error("Failed to load tracking record", "error", err)
		p.notify("tracking-failed", p.notifier.SendTrackingFailed(p.destinationID, p.tag, "storage unavailable"))
		return fmt.Errorf("load tracking record %s: %w", p.tag, err)
	}

	if record.LastTrophyCount != nil {
		p.last = *record.LastTrophyCount
		p.logger.Info("Resuming from persisted trophy count", "trophies", p.last, "current", player.Trophies)
	} else {
		p.last = player.Trophies
		if err := p.store.UpdateTrophy(p.tag, p.destinationID, p.last, ""); err != nil {
			p.logger.Error("Failed to persist initial trophy count", "error", err)
			p.dirty = true
		}
	}
	if record.DailyBaseline == nil {
		if err := p.store.SeedBaseline(p.tag, p.destinationID); err != nil {
			p.logger.Error("Failed to seed daily baseline", "error", err)
		}
	}
	p.lastResetDate = record.BaselineDate

	p.state = StatePolling
	p.logger.Info("Tracking started", "player", player.Name, "trophies", p.last)
	p.notify("tracking-started", p.notifier.SendTrackingStarted(p.destinationID, player, p.last))
	return nil
}

func (p *Poller) fetchWithRetry(ctx context.Context) (clash.Player, error) {
	attempts := p.cfg.InitAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.cfg.InitBackoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	var player clash.Player
	err := retry.Do(ctx, retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(backoff)), func(ctx context.Context) error {
		p.metrics.IncPolls()
		fetched, err := p.client.GetPlayer(ctx, p.tag)
		if err != nil {
			p.metrics.IncPollFailures()
			if clash.IsTransient(err) && ctx.Err() == nil {
				p.logger.Warn("Initial fetch failed, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		player = fetched
		return nil
	})
	return player, err
}

// Run polls until ctx is cancelled or the poller terminates by itself. It
// initializes first when Initialize has not been called.
func (p *Poller) Run(ctx context.Context) {
	if p.state == StateInitializing {
		if err := p.Initialize(ctx); err != nil {
			return
		}
	}
	if p.state != StatePolling {
		return
	}

	wait := p.cfg.Interval
	for {
		if !sleep(ctx, wait) {
			p.stop(ctx)
			return
		}
		// An iteration in progress always completes.
		next, done := p.step(context.WithoutCancel(ctx))
		if done {
			return
		}
		wait = next
	}
}

func (p *Poller) stop(ctx context.Context) {
	p.state = StateTerminated
	if errors.Is(context.Cause(ctx), ErrShutdown) {
		p.logger.Info("Poller shut down")
		return
	}
	name := p.player.Name
	if name == "" {
		name = clash.DisplayTag(p.tag)
	}
	p.logger.Info("Stopping trophy tracking")
	p.notify("tracking-stopped", p.notifier.SendTrackingStopped(p.destinationID, name))
}

// step runs one polling iteration and returns how long to wait before the
// next one, or done when the poller terminated.
func (p *Poller) step(ctx context.Context) (time.Duration, bool) {
	start := time.Now()
	defer func() {
		p.metrics.ObservePollDuration(time.Since(start).Seconds())
	}()

	p.metrics.IncPolls()
	player, err := p.client.GetPlayer(ctx, p.tag)
	if err != nil {
		p.metrics.IncPollFailures()
		if errors.Is(err, clash.ErrPlayerNotFound) {
			p.misses++
			if p.cfg.MaxMissedPolls > 0 && p.misses >= p.cfg.MaxMissedPolls {
				p.state = StateTerminated
				p.logger.Error("Player not found repeatedly, stopping", "misses", p.misses)
				p.notify("tracking-failed", p.notifier.SendTrackingFailed(p.destinationID, p.tag, "player not found"))
				return 0, true
			}
		}
		p.logger.Warn("Failed to fetch player", "error", err)
		return p.cfg.RetryDelay, false
	}
	p.misses = 0
	p.player = player

	if !player.InLeague(p.cfg.EligibleLeagueID) {
		p.state = StateTerminated
		p.logger.Info("Player left the eligible league", "league", player.LeagueName())
		p.notify("eligibility-lost", p.notifier.SendEligibilityLost(p.destinationID, player))
		return 0, true
	}

	now := p.now()
	resetDate := ""
	if p.cfg.Schedule.Crossed(p.lastTick, now) {
		if date := p.cfg.Schedule.ResetDate(now); date != p.lastResetDate {
			resetDate = date
		}
	}

	current := player.Trophies
	changed := current != p.last
	if !changed && resetDate == "" && !p.dirty {
		p.lastTick = now
		return p.cfg.Interval, false
	}

	if changed {
		event := trophy.NewEvent(clash.DisplayTag(p.tag), player.Name, current-p.last)
		p.logger.Info("Trophy change detected", "previous", p.last, "current", current, "category", event.Category)
		p.metrics.IncTrophyChange(string(event.Category))
		if p.announce(event) {
			p.notify("trophy-change", p.notifier.SendTrophyChange(p.destinationID, event))
		}
		p.publish(ctx, event, current, now)
		p.last = current
	}

	if err := p.store.UpdateTrophy(p.tag, p.destinationID, current, resetDate); err != nil {
		// The reset stays pending and the count is re-written next time.
		p.logger.Error("Failed to persist trophy count", "error", err, "reset_date", resetDate)
		p.dirty = true
		return p.cfg.RetryDelay, false
	}
	p.dirty = false
	p.lastTick = now
	if resetDate != "" {
		p.lastResetDate = resetDate
		p.logger.Info("Daily baseline reset", "date", resetDate, "baseline", current)
	}
	return p.cfg.Interval, false
}

func (p *Poller) announce(event trophy.Event) bool {
	return event.Category != trophy.ThreeStarDefenseLoss || p.cfg.AnnounceThreeStarDefense
}

func (p *Poller) publish(ctx context.Context, event trophy.Event, current int, at time.Time) {
	err := p.pubsub.SendMessage(ctx, pubsub.EventTrophyChange, pubsub.TrophyChangeMessage{
		Tag:           p.tag,
		PlayerName:    event.PlayerName,
		DestinationID: p.destinationID,
		Previous:      current - event.Delta,
		Current:       current,
		Delta:         event.Delta,
		Category:      string(event.Category),
		ObservedAt:    at,
	})
	if err != nil {
		p.logger.Warn("Failed to publish trophy change", "error", err)
	}
}

func (p *Poller) notify(kind string, err error) {
	if err != nil {
		p.logger.Error("Failed to send notification", "kind", kind, "error", err)
	}
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
