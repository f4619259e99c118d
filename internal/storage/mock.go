package storage

import (
	"context"
	"sync"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// MockStore is a mock implementation of Store for testing. It keeps the
// encoded envelope so tests can compare saves byte for byte.
type MockStore struct {
	mu        sync.RWMutex
	data      []byte
	saves     int
	pingError error
	saveError error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetRaw replaces the stored record with data as if another build wrote it.
func (m *MockStore) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

func (m *MockStore) Save(ctx context.Context, gs *state.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	data, err := MarshalEnvelope(gs)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *MockStore) Load(ctx context.Context) (*state.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, nil
	}
	return UnmarshalEnvelope(m.data)
}

func (m *MockStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStore) Close() error {
	return nil
}

// Raw returns a copy of the last saved bytes.
func (m *MockStore) Raw() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// SaveCount returns how many saves succeeded.
func (m *MockStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
