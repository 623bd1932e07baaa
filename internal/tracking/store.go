package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const trackedColumns = `id, player_tag, owner_id, destination_id, last_trophy_count,
	daily_baseline_trophy, previous_baseline_trophy, baseline_date, created_at`

// New creates a new tracking Store.
func New(db *sql.DB) Store {
	return &store{
		db:  db,
		now: time.Now,
	}
}

// UpsertLink links ownerID to tag, replacing any previous link.
func (s *store) UpsertLink(ownerID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.db.Prepare(`
		INSERT INTO player_links (owner_id, player_tag, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			player_tag = excluded.player_tag,
			updated_at = excluded.updated_at;
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(ownerID, tag, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert link for %s: %w", ownerID, err)
	}
	log.Debug("Linked player", "owner", ownerID, "tag", tag)
	return nil
}

// LookupLink returns the tag linked to ownerID.
func (s *store) LookupLink(ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tag string
	err := s.db.QueryRow(`SELECT player_tag FROM player_links WHERE owner_id = ?`, ownerID).Scan(&tag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return tag, nil
}

// InsertTracking creates a new record with no trophy state.
func (s *store) InsertTracking(tag, ownerID, destinationID string) (TrackedPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return TrackedPlayer{}, err
	}

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM tracked_players WHERE player_tag = ? AND destination_id = ?`, tag, destinationID).Scan(&exists)
	if err != nil {
		tx.Rollback()
		return TrackedPlayer{}, err
	}
	if exists > 0 {
		tx.Rollback()
		return TrackedPlayer{}, ErrDuplicateTracking
	}

	p := TrackedPlayer{
		ID:            uuid.NewString(),
		PlayerTag:     tag,
		OwnerID:       ownerID,
		DestinationID: destinationID,
		CreatedAt:     s.now().UTC().Truncate(time.Second),
	}
	_, err = tx.Exec(`
		INSERT INTO tracked_players (id, player_tag, owner_id, destination_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.PlayerTag, p.OwnerID, p.DestinationID, p.CreatedAt.Unix())
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return TrackedPlayer{}, ErrDuplicateTracking
		}
		return TrackedPlayer{}, err
	}
	if err := tx.Commit(); err != nil {
		return TrackedPlayer{}, err
	}
	log.Info("Inserted tracking record", "tag", tag, "owner", ownerID, "destination", destinationID)
	return p, nil
}

func (s *store) GetTracking(tag, destinationID string) (TrackedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+trackedColumns+` FROM tracked_players WHERE player_tag = ? AND destination_id = ?`, tag, destinationID)
	return scanTracked(row)
}

// FindTrackingByOwner returns the oldest record of tag owned by ownerID.
func (s *store) FindTrackingByOwner(tag, ownerID string) (TrackedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+trackedColumns+` FROM tracked_players
		WHERE player_tag = ? AND owner_id = ? ORDER BY created_at ASC LIMIT 1`, tag, ownerID)
	return scanTracked(row)
}

func (s *store) ListTracking() ([]TrackedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + trackedColumns + ` FROM tracked_players ORDER BY created_at ASC, player_tag ASC`)
	if err != nil {
		return nil, err
	}
	return collectTracked(rows)
}

func (s *store) ListTrackingByOwner(ownerID string) ([]TrackedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+trackedColumns+` FROM tracked_players WHERE owner_id = ? ORDER BY created_at ASC, player_tag ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectTracked(rows)
}

func (s *store) CountTrackingByOwner(ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tracked_players WHERE owner_id = ?`, ownerID).Scan(&count)
	return count, err
}

// UpdateTrophy writes the observed count. A daily reset write moves the
// current baseline to previous_baseline_trophy, unless the record was already
// reset on resetDate, so a second reset on one date keeps the prior day's
// start. A seeded baseline that never had a reset date is not carried over.
// resetQuery moves the baseline to a new date. Re-applying the same date
// keeps the previous baseline; the first reset leaves it unset.
const resetQuery = `
	UPDATE tracked_players SET
		previous_baseline_trophy = CASE
			WHEN baseline_date = ? THEN previous_baseline_trophy
			WHEN baseline_date IS NULL THEN NULL
			ELSE daily_baseline_trophy
		END,
		daily_baseline_trophy = ?,
		baseline_date = ?`

func (s *store) UpdateTrophy(tag, destinationID string, count int, resetDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if resetDate == "" {
		res, err = s.db.Exec(`UPDATE tracked_players SET last_trophy_count = ? WHERE player_tag = ? AND destination_id = ?`,
			count, tag, destinationID)
	} else {
		res, err = s.db.Exec(resetQuery+`, last_trophy_count = ?
			WHERE player_tag = ? AND destination_id = ?`,
			resetDate, count, resetDate, count, tag, destinationID)
	}
	if err != nil {
		return fmt.Errorf("failed to update trophies for %s: %w", tag, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	log.Debug("Updated trophies", "tag", tag, "destination", destinationID, "count", count, "reset_date", resetDate)
	return nil
}

func (s *store) ResetBaseline(tag, destinationID string, baseline int, resetDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(resetQuery+`
		WHERE player_tag = ? AND destination_id = ?`,
		resetDate, baseline, resetDate, tag, destinationID)
	if err != nil {
		return fmt.Errorf("failed to reset baseline for %s: %w", tag, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	log.Debug("Reset daily baseline", "tag", tag, "destination", destinationID, "baseline", baseline, "reset_date", resetDate)
	return nil
}

func (s *store) SeedBaseline(tag, destinationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE tracked_players SET daily_baseline_trophy = 0
		WHERE player_tag = ? AND destination_id = ? AND daily_baseline_trophy IS NULL`, tag, destinationID)
	if err != nil {
		return fmt.Errorf("failed to seed baseline for %s: %w", tag, err)
	}
	return nil
}

func (s *store) RemoveTracking(tag, destinationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM tracked_players WHERE player_tag = ? AND destination_id = ?`, tag, destinationID)
	if err != nil {
		return fmt.Errorf("failed to remove tracking for %s: %w", tag, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	log.Info("Removed tracking record", "tag", tag, "destination", destinationID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTracked(row rowScanner) (TrackedPlayer, error) {
	var (
		p                        TrackedPlayer
		last, baseline, previous sql.NullInt64
		baselineDate             sql.NullString
		createdAt                int64
	)
	err := row.Scan(&p.ID, &p.PlayerTag, &p.OwnerID, &p.DestinationID, &last, &baseline, &previous, &baselineDate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackedPlayer{}, ErrNotFound
	}
	if err != nil {
		return TrackedPlayer{}, err
	}
	p.LastTrophyCount = nullableInt(last)
	p.DailyBaseline = nullableInt(baseline)
	p.PreviousBaseline = nullableInt(previous)
	p.BaselineDate = baselineDate.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}

func collectTracked(rows *sql.Rows) ([]TrackedPlayer, error) {
	defer rows.Close()
	var players []TrackedPlayer
	for rows.Next() {
		p, err := scanTracked(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
