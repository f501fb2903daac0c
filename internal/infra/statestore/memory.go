package statestore

import (
	"context"
	"sync"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/port"
)

var _ port.OnboardingStateStore = (*Memory)(nil)

// Memory keeps wizard state in process memory, one key space per user.
type Memory struct {
	mu    sync.RWMutex
	users map[string]map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]map[string]string)}
}

// Load returns the stored state, or a fresh one.
func (m *Memory) Load(_ context.Context, user string) (*domain.OnboardingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]string, 4)
	for k, v := range m.users[user] {
		found[k] = v
	}
	return decode(user, found)
}

// Save writes every key of user under one lock.
func (m *Memory) Save(_ context.Context, user string, state *domain.OnboardingState) error {
	kv, err := encode(user, state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user] = kv
	return nil
}

// Delete forgets user.
func (m *Memory) Delete(_ context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, user)
	return nil
}

// Raw returns the stored value of one of user's keys, for inspection.
func (m *Memory) Raw(user, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.users[user][key]
	return v, ok
}
