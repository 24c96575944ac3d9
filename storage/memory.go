package storage

import (
	"context"
	"sync"
	"time"

	"github.com/CreativeUnicorns/morestickers"
)

// MemoryStorage implements the Storage interface using an in-memory map.
// This is useful for testing or when preferences need not outlive the process.
type MemoryStorage struct {
	mu    sync.RWMutex
	prefs map[string]map[string]*morestickers.Preference // namespace -> key -> Preference
}

// NewMemoryStorage creates a new instance of MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[string]map[string]*morestickers.Preference),
	}
}

// Get retrieves a preference by namespace and key.
// It returns morestickers.ErrNotFound if the preference does not exist.
func (s *MemoryStorage) Get(_ context.Context, namespace, key string) (*morestickers.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nsPrefs, ok := s.prefs[namespace]
	if !ok {
		return nil, morestickers.ErrNotFound
	}

	pref, ok := nsPrefs[key]
	if !ok {
		return nil, morestickers.ErrNotFound
	}

	// Return a copy to prevent modification of the stored preference through the pointer
	prefCopy := *pref
	return &prefCopy, nil
}

// Set stores a preference and stamps UpdatedAt.
func (s *MemoryStorage) Set(_ context.Context, pref *morestickers.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prefs[pref.Namespace]; !ok {
		s.prefs[pref.Namespace] = make(map[string]*morestickers.Preference)
	}

	prefToStore := *pref
	prefToStore.UpdatedAt = time.Now()
	s.prefs[pref.Namespace][pref.Key] = &prefToStore
	return nil
}

// Delete removes a preference. Deleting an absent key is not an error.
func (s *MemoryStorage) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nsPrefs, ok := s.prefs[namespace]
	if !ok {
		return nil
	}

	delete(nsPrefs, key)
	if len(nsPrefs) == 0 {
		delete(s.prefs, namespace)
	}
	return nil
}

// GetAll retrieves all preferences of a namespace.
func (s *MemoryStorage) GetAll(_ context.Context, namespace string) (map[string]*morestickers.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nsPrefs := s.prefs[namespace]
	prefsCopy := make(map[string]*morestickers.Preference, len(nsPrefs))
	for k, v := range nsPrefs {
		valCopy := *v
		prefsCopy[k] = &valCopy
	}
	return prefsCopy, nil
}

// Close is a no-op for MemoryStorage as there are no external resources to release.
func (s *MemoryStorage) Close() error {
	return nil
}
