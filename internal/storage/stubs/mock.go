package stubs

import (
	"context"
	"sort"
	"sync"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu      sync.RWMutex
	users   map[string]models.UserRecord
	enabled *bool
}

// NewMockDB creates a new mock storage
func NewMockDB() *MockDB {
	return &MockDB{
		users: make(map[string]models.UserRecord),
	}
}

// Initialize is a no-op for the in-memory store
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// AddUser registers a user; re-registration keeps the original record
func (m *MockDB) AddUser(ctx context.Context, user models.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return nil
	}
	m.users[user.ID] = user
	return nil
}

// HasUser reports whether the id is registered
func (m *MockDB) HasUser(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.users[id]
	return ok, nil
}

// ListUsers returns all registered users sorted by id
func (m *MockDB) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.UserRecord, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// RemoveUsers deletes the given ids; unknown ids are ignored
func (m *MockDB) RemoveUsers(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.users, id)
	}
	return nil
}

// SetEnabledMirror stores the last-known enabled value
func (m *MockDB) SetEnabledMirror(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = &enabled
	return nil
}

// EnabledMirror reads the last-known enabled value
func (m *MockDB) EnabledMirror(ctx context.Context) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.enabled == nil {
		return false, false, nil
	}
	return *m.enabled, true, nil
}

// Close is a no-op for the in-memory store
func (m *MockDB) Close() error {
	return nil
}
