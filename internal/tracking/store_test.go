package tracking_test

import (
	"sync"
	"testing"

	"github.com/mauv0809/legend-tracker/internal/database"
	"github.com/mauv0809/legend-tracker/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) tracking.Store {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(teardown)

	return tracking.New(db)
}

func TestLinks(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.LookupLink("user-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	require.NoError(t, store.UpsertLink("user-1", "ABC"))
	require.NoError(t, store.UpsertLink("user-1", "XYZ"))

	tag, err := store.LookupLink("user-1")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", tag)
}

func TestInsertTracking(t *testing.T) {
	store := setupTestDB(t)

	p, err := store.InsertTracking("ABC", "user-1", "chan-1")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Nil(t, p.LastTrophyCount)
	assert.Nil(t, p.DailyBaseline)

	_, err = store.InsertTracking("ABC", "user-2", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrDuplicateTracking)

	_, err = store.InsertTracking("ABC", "user-2", "chan-2")
	require.NoError(t, err, "a second destination gets its own record")

	all, err := store.ListTracking()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := store.CountTrackingByOwner("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	owned, err := store.FindTrackingByOwner("ABC", "user-2")
	require.NoError(t, err)
	assert.Equal(t, "chan-2", owned.DestinationID)
}

func TestInsertTracking_Concurrent(t *testing.T) {
	store := setupTestDB(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.InsertTracking("ABC", "user", "chan"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestUpdateTrophy(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.InsertTracking("ABC", "user-1", "chan-1")
	require.NoError(t, err)

	require.NoError(t, store.SeedBaseline("ABC", "chan-1"))
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5000, ""))

	p, err := store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	require.NotNil(t, p.LastTrophyCount)
	require.NotNil(t, p.DailyBaseline)
	assert.Equal(t, 5000, *p.LastTrophyCount)
	assert.Equal(t, 0, *p.DailyBaseline, "plain updates leave the baseline alone")
	assert.Empty(t, p.BaselineDate)

	// Daily reset for 2025-03-01.
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5100, "2025-03-01"))
	p, err = store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 5100, *p.DailyBaseline)
	assert.Nil(t, p.PreviousBaseline, "the seeded baseline is not a real start of day")
	assert.Equal(t, "2025-03-01", p.BaselineDate)

	// The next day shifts the baseline.
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5200, "2025-03-02"))
	p, err = store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 5200, *p.DailyBaseline)
	assert.Equal(t, 5100, *p.PreviousBaseline)
	assert.Equal(t, 5200, *p.LastTrophyCount)

	// A second reset on the same date refreshes the baseline but keeps the
	// previous day's start.
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5210, "2025-03-02"))
	p, err = store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 5210, *p.DailyBaseline)
	assert.Equal(t, 5100, *p.PreviousBaseline)

	// Seeding never overwrites an existing baseline.
	require.NoError(t, store.SeedBaseline("ABC", "chan-1"))
	p, err = store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 5210, *p.DailyBaseline)
}

func TestResetBaseline_KeepsLastCount(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.InsertTracking("ABC", "user-1", "chan-1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5000, "2025-02-28"))
	require.NoError(t, store.UpdateTrophy("ABC", "chan-1", 5132, ""))

	require.NoError(t, store.ResetBaseline("ABC", "chan-1", 5100, "2025-03-01"))

	p, err := store.GetTracking("ABC", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 5132, *p.LastTrophyCount, "the last observed count is never reverted")
	assert.Equal(t, 5100, *p.DailyBaseline)
	assert.Equal(t, 5000, *p.PreviousBaseline)
	assert.Equal(t, "2025-03-01", p.BaselineDate)

	assert.ErrorIs(t, store.ResetBaseline("NOPE", "chan-1", 1, "2025-03-01"), tracking.ErrNotFound)
}

func TestUpdateTrophy_UnknownRecord(t *testing.T) {
	store := setupTestDB(t)
	err := store.UpdateTrophy("NOPE", "chan", 1, "")
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

func TestRemoveTracking(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.InsertTracking("ABC", "user-1", "chan-1")
	require.NoError(t, err)

	require.NoError(t, store.RemoveTracking("ABC", "chan-1"))
	_, err = store.GetTracking("ABC", "chan-1")
	assert.ErrorIs(t, err, tracking.ErrNotFound)
	assert.ErrorIs(t, store.RemoveTracking("ABC", "chan-1"), tracking.ErrNotFound)
}

func TestMockStoreMatchesResetSemantics(t *testing.T) {
	m := tracking.NewMock()
	_, err := m.InsertTracking("ABC", "u", "c")
	require.NoError(t, err)
	require.NoError(t, m.SeedBaseline("ABC", "c"))
	require.NoError(t, m.UpdateTrophy("ABC", "c", 10, "2025-01-01"))
	require.NoError(t, m.UpdateTrophy("ABC", "c", 20, "2025-01-02"))
	require.NoError(t, m.UpdateTrophy("ABC", "c", 30, "2025-01-02"))

	p, err := m.GetTracking("ABC", "c")
	require.NoError(t, err)
	assert.Equal(t, 30, *p.DailyBaseline)
	assert.Equal(t, 10, *p.PreviousBaseline)
	assert.Equal(t, 3, m.Writes())
}
