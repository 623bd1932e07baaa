package tracking

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// UpdateTrophyCall records one UpdateTrophy invocation.
type UpdateTrophyCall struct {
	Tag           string
	DestinationID string
	Count         int
	ResetDate     string
}

// MockStore is an in-memory implementation of the Store interface for testing.
// Without a XxxFunc hook each method behaves like the SQL store.
// It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	links   map[string]string
	records map[Key]TrackedPlayer
	seq     int

	InsertTrackingFunc func(tag, ownerID, destinationID string) (TrackedPlayer, error)
	UpdateTrophyFunc   func(tag, destinationID string, count int, resetDate string) error
	ResetBaselineFunc  func(tag, destinationID string, baseline int, resetDate string) error
	SeedBaselineFunc   func(tag, destinationID string) error
	RemoveTrackingFunc func(tag, destinationID string) error

	UpdateTrophyCalls   []UpdateTrophyCall
	ResetBaselineCalls  []UpdateTrophyCall
	SeedBaselineCalls   []Key
	RemoveTrackingCalls []Key
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{
		links:   make(map[string]string),
		records: make(map[Key]TrackedPlayer),
	}
}

var _ Store = (*MockStore)(nil)

// Put stores p as-is, replacing any record with the same key.
func (m *MockStore) Put(p TrackedPlayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if p.ID == "" {
		p.ID = fmt.Sprintf("mock-%d", m.seq)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	}
	m.records[p.Key()] = p
}

// Writes returns the number of trophy and baseline writes recorded so far.
func (m *MockStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.UpdateTrophyCalls) + len(m.ResetBaselineCalls)
}

func (m *MockStore) UpsertLink(ownerID, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[ownerID] = tag
	return nil
}

func (m *MockStore) LookupLink(ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tag, ok := m.links[ownerID]
	if !ok {
		return "", ErrNotFound
	}
	return tag, nil
}

func (m *MockStore) InsertTracking(tag, ownerID, destinationID string) (TrackedPlayer, error) {
	m.mu.Lock()
	fn := m.InsertTrackingFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tag, ownerID, destinationID)
	}

	m.mu.Lock()
	key := Key{Tag: tag, DestinationID: destinationID}
	if _, ok := m.records[key]; ok {
		m.mu.Unlock()
		return TrackedPlayer{}, ErrDuplicateTracking
	}
	m.mu.Unlock()

	m.Put(TrackedPlayer{PlayerTag: tag, OwnerID: ownerID, DestinationID: destinationID})
	return m.GetTracking(tag, destinationID)
}

func (m *MockStore) GetTracking(tag, destinationID string) (TrackedPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[Key{Tag: tag, DestinationID: destinationID}]
	if !ok {
		return TrackedPlayer{}, ErrNotFound
	}
	return p, nil
}

func (m *MockStore) FindTrackingByOwner(tag, ownerID string) (TrackedPlayer, error) {
	for _, p := range m.sorted() {
		if p.PlayerTag == tag && p.OwnerID == ownerID {
			return p, nil
		}
	}
	return TrackedPlayer{}, ErrNotFound
}

func (m *MockStore) ListTracking() ([]TrackedPlayer, error) {
	return m.sorted(), nil
}

func (m *MockStore) ListTrackingByOwner(ownerID string) ([]TrackedPlayer, error) {
	var out []TrackedPlayer
	for _, p := range m.sorted() {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockStore) CountTrackingByOwner(ownerID string) (int, error) {
	players, _ := m.ListTrackingByOwner(ownerID)
	return len(players), nil
}

func (m *MockStore) UpdateTrophy(tag, destinationID string, count int, resetDate string) error {
	m.mu.Lock()
	m.UpdateTrophyCalls = append(m.UpdateTrophyCalls, UpdateTrophyCall{tag, destinationID, count, resetDate})
	fn := m.UpdateTrophyFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tag, destinationID, count, resetDate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{Tag: tag, DestinationID: destinationID}
	p, ok := m.records[key]
	if !ok {
		return ErrNotFound
	}
	c := count
	p.LastTrophyCount = &c
	if resetDate != "" {
		p = resetRecord(p, count, resetDate)
	}
	m.records[key] = p
	return nil
}

func (m *MockStore) ResetBaseline(tag, destinationID string, baseline int, resetDate string) error {
	m.mu.Lock()
	m.ResetBaselineCalls = append(m.ResetBaselineCalls, UpdateTrophyCall{tag, destinationID, baseline, resetDate})
	fn := m.ResetBaselineFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tag, destinationID, baseline, resetDate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{Tag: tag, DestinationID: destinationID}
	p, ok := m.records[key]
	if !ok {
		return ErrNotFound
	}
	m.records[key] = resetRecord(p, baseline, resetDate)
	return nil
}

func resetRecord(p TrackedPlayer, baseline int, resetDate string) TrackedPlayer {
	switch p.BaselineDate {
	case resetDate:
	case "":
		p.PreviousBaseline = nil
	default:
		p.PreviousBaseline = p.DailyBaseline
	}
	b := baseline
	p.DailyBaseline = &b
	p.BaselineDate = resetDate
	return p
}

func (m *MockStore) SeedBaseline(tag, destinationID string) error {
	m.mu.Lock()
	key := Key{Tag: tag, DestinationID: destinationID}
	m.SeedBaselineCalls = append(m.SeedBaselineCalls, key)
	fn := m.SeedBaselineFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tag, destinationID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[key]; ok && p.DailyBaseline == nil {
		zero := 0
		p.DailyBaseline = &zero
		m.records[key] = p
	}
	return nil
}

func (m *MockStore) RemoveTracking(tag, destinationID string) error {
	m.mu.Lock()
	key := Key{Tag: tag, DestinationID: destinationID}
	m.RemoveTrackingCalls = append(m.RemoveTrackingCalls, key)
	fn := m.RemoveTrackingFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tag, destinationID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

func (m *MockStore) sorted() []TrackedPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TrackedPlayer, 0, len(m.records))
	for _, p := range m.records {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].PlayerTag < out[j].PlayerTag
	})
	return out
}
