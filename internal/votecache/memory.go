package votecache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache for tests and hosts without durable storage.
type Memory struct {
	mu    sync.Mutex
	votes map[string]string
}

func NewMemory() *Memory {
	return &Memory{votes: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, eventID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	planID, ok := m.votes[eventID]
	return planID, ok, nil
}

func (m *Memory) Set(_ context.Context, eventID, planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[eventID] = planID
	return nil
}

func (m *Memory) Clear(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes, eventID)
	return nil
}
