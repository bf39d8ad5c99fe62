package session

import (
	"context"
	"sync"

	"github.com/shutterdeck/go-client-sdk/api"
)

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) deleteAll(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryStore) Profile(ctx context.Context) (*api.UserProfile, error) {
	return loadProfile(ctx, m)
}

func (m *MemoryStore) SaveProfile(ctx context.Context, profile api.UserProfile) error {
	return saveProfile(ctx, m, profile)
}

func (m *MemoryStore) MustChangePassword(ctx context.Context) (bool, error) {
	return loadFlag(ctx, m)
}

func (m *MemoryStore) SetMustChangePassword(ctx context.Context, required bool) error {
	return saveFlag(ctx, m, required)
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.deleteAll(ctx, KeyUser, KeyMustChangePassword)
}

func (m *MemoryStore) Close() error {
	return nil
}
