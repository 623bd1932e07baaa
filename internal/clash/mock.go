package clash

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of the Client interface for testing.
// It is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	GetPlayerFunc func(ctx context.Context, tag string) (Player, error)

	GetPlayerCalls []string
}

// NewMockClient creates a new mock instance.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetPlayer(ctx context.Context, tag string) (Player, error) {
	m.mu.Lock()
	m.GetPlayerCalls = append(m.GetPlayerCalls, tag)
	fn := m.GetPlayerFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, tag)
	}
	return Player{Tag: DisplayTag(tag)}, nil
}

// Calls returns the number of GetPlayer calls so far.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetPlayerCalls)
}
