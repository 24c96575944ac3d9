package morestickers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockStorage implements the Storage interface for testing.
type MockStorage struct {
	mu       sync.RWMutex
	data     map[string]map[string]*Preference
	closed   bool
	forceErr error
	gets     int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		data: make(map[string]map[string]*Preference),
	}
}

// FailWith makes every subsequent call return err.
func (m *MockStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceErr = err
}

func (m *MockStorage) GetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets
}

func (m *MockStorage) check() error {
	if m.closed {
		return ErrStorageUnavailable
	}
	return m.forceErr
}

func (m *MockStorage) Get(ctx context.Context, namespace, key string) (*Preference, error) {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	if err := m.check(); err != nil {
		return nil, err
	}

	if prefs, exists := m.data[namespace]; exists {
		if pref, exists := prefs[key]; exists {
			copied, err := deepCopyPreference(pref)
			if err != nil {
				return nil, fmt.Errorf("mockstorage: error deep copying preference %s: %w", key, err)
			}
			return copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStorage) Set(ctx context.Context, pref *Preference) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(); err != nil {
		return err
	}

	if _, exists := m.data[pref.Namespace]; !exists {
		m.data[pref.Namespace] = make(map[string]*Preference)
	}
	m.data[pref.Namespace][pref.Key] = pref
	return nil
}

func (m *MockStorage) Delete(ctx context.Context, namespace, key string) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(); err != nil {
		return err
	}

	if prefs, exists := m.data[namespace]; exists {
		if _, exists := prefs[key]; exists {
			delete(prefs, key)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStorage) GetAll(ctx context.Context, namespace string) (map[string]*Preference, error) {
	_, _ = ctx.Deadline()
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(); err != nil {
		return nil, err
	}

	copiedPrefs := make(map[string]*Preference)
	for key, p := range m.data[namespace] {
		copied, err := deepCopyPreference(p)
		if err != nil {
			return nil, fmt.Errorf("mockstorage: error deep copying preference %s: %w", key, err)
		}
		copiedPrefs[key] = copied
	}
	return copiedPrefs, nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// deepCopyPreference copies a Preference through JSON, the same path real
// backends take, so values come back as JSON-decoded types.
func deepCopyPreference(original *Preference) (*Preference, error) {
	if original == nil {
		return nil, nil
	}
	data, err := json.Marshal(original)
	if err != nil {
		return nil, err
	}
	var copied Preference
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

// MockCache implements the Cache interface for testing.
type MockCache struct {
	mu     sync.RWMutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	closed bool
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (interface{}, error) {
	_, _ = ctx.Deadline()
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrCacheUnavailable
	}

	value, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}

	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("mockcache: expected []byte, got %T", value)
	}
	m.data[key] = data
	m.ttls[key] = ttl
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	_, _ = ctx.Deadline()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheUnavailable
	}
	delete(m.data, key)
	return nil
}

func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// MockLogger implements the Logger interface for testing.
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG", msg, args...)
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO", msg, args...)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN", msg, args...)
}

func (m *MockLogger) Error(msg string, args ...interface{}) {
	m.record("ERROR", msg, args...)
}

func (m *MockLogger) SetLevel(level LogLevel) {
	m.record("SET_LEVEL", fmt.Sprint(level))
}

func (m *MockLogger) record(level, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(args) > 0 {
		m.Messages = append(m.Messages, fmt.Sprintf("%s: %s %v", level, msg, args))
		return
	}
	m.Messages = append(m.Messages, fmt.Sprintf("%s: %s", level, msg))
}
