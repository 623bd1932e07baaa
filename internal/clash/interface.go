package clash

import "context"

// Client fetches player snapshots from the Clash of Clans API.
// This allows for mock implementations to be used in tests.
type Client interface {
	GetPlayer(ctx context.Context, tag string) (Player, error)
}
