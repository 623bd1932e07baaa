package metrics

import (
	"database/sql"
	"sync"

	"github.com/charmbracelet/log"
)

// store keeps lifetime counters in the metrics table.
type store struct {
	db   *sql.DB
	mu   sync.Mutex
	incr *sql.Stmt
}

// New creates a new metrics Store.
func New(db *sql.DB) MetricsStore {
	return &store{
		db: db,
	}
}

// Increment upserts a counter key and increments its value by one. Failures
// are logged; a lost increment never fails the caller.
func (s *store) Increment(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.incr == nil {
		stmt, err := s.db.Prepare(`
			INSERT INTO metrics (key, value) VALUES (?, 1)
			ON CONFLICT(key) DO UPDATE SET value = value + 1;
		`)
		if err != nil {
			log.Error("Failed to prepare metric increment", "error", err, "key", key)
			return
		}
		s.incr = stmt
	}

	if _, err := s.incr.Exec(key); err != nil {
		log.Error("Failed to increment metric", "error", err, "key", key)
		return
	}
	log.Debug("Incremented metric", "key", key)
}

// GetAll returns every stored counter.
func (s *store) GetAll() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT key, value FROM metrics")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			value int
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		counters[key] = value
	}
	return counters, rows.Err()
}
