package tracking

// Store persists player links and tracked players.
type Store interface {
	UpsertLink(ownerID, tag string) error
	LookupLink(ownerID string) (string, error)

	InsertTracking(tag, ownerID, destinationID string) (TrackedPlayer, error)
	GetTracking(tag, destinationID string) (TrackedPlayer, error)
	FindTrackingByOwner(tag, ownerID string) (TrackedPlayer, error)
	ListTracking() ([]TrackedPlayer, error)
	ListTrackingByOwner(ownerID string) ([]TrackedPlayer, error)
	CountTrackingByOwner(ownerID string) (int, error)
	// UpdateTrophy stores an observed trophy count. A non-empty resetDate
	// makes it the daily reset write for that date: the baseline becomes
	// count as well.
	UpdateTrophy(tag, destinationID string, count int, resetDate string) error
	// ResetBaseline is the daily reset write for resetDate without touching
	// the last observed count, which only the poller advances.
	ResetBaseline(tag, destinationID string, baseline int, resetDate string) error
	// SeedBaseline sets the daily baseline to 0 when it has never been set.
	SeedBaseline(tag, destinationID string) error
	RemoveTracking(tag, destinationID string) error
}
