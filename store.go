// store.go
package morestickers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"
)

const defaultCacheTTL = 24 * time.Hour

// Store proxies reads and writes of add-on preferences to a host-provided
// Storage. Reads of keys that were never written are not errors; they report
// the key as absent.
type Store struct {
	mu     sync.RWMutex
	config *Config
}

// New creates a Store. The region and resizeSwitchState keys are defined up
// front; further keys can be declared with Define.
func New(opts ...Option) *Store {
	cfg := &Config{
		logger:      NewDefaultLogger(),
		namespace:   DefaultNamespace,
		cacheTTL:    defaultCacheTTL,
		definitions: make(map[string]PreferenceDefinition),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	for _, def := range builtinDefinitions() {
		cfg.definitions[def.Key] = def
	}

	return &Store{
		config: cfg,
	}
}

func builtinDefinitions() []PreferenceDefinition {
	return []PreferenceDefinition{
		{
			Key:          RegionKey,
			Type:         StringType,
			DefaultValue: DefaultRegion,
			ValidateFunc: validateRegion,
		},
		{
			Key:          ResizeSwitchStateKey,
			Type:         BoolType,
			DefaultValue: false,
		},
	}
}

func isBuiltinKey(key string) bool {
	return key == RegionKey || key == ResizeSwitchStateKey
}

func validateRegion(value interface{}) error {
	s, _ := value.(string)
	if _, err := language.Parse(s); err != nil {
		return fmt.Errorf("region %q is not a language code: %w", s, err)
	}
	return nil
}

// Namespace returns the namespace all keys of this Store live under.
func (s *Store) Namespace() string {
	return s.config.namespace
}

// Define registers or replaces the definition of a key. Subsequent Set calls
// for that key are type-checked against it. The region and resizeSwitchState
// definitions are fixed and cannot be replaced.
func (s *Store) Define(def PreferenceDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.Key == "" {
		return ErrInvalidKey
	}
	if isBuiltinKey(def.Key) {
		return fmt.Errorf("%w: %q is built in", ErrInvalidKey, def.Key)
	}

	if !isValidType(def.Type) {
		return ErrInvalidType
	}

	if def.DefaultValue != nil {
		if err := validateValue(def.DefaultValue, def); err != nil {
			return fmt.Errorf("default value for %q: %w", def.Key, err)
		}
	}

	s.config.definitions[def.Key] = def
	return nil
}

// Definition returns the definition registered for key.
func (s *Store) Definition(key string) (PreferenceDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, exists := s.config.definitions[key]
	return def, exists
}

// Definitions returns every registered definition ordered by key.
func (s *Store) Definitions() []PreferenceDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]PreferenceDefinition, 0, len(s.config.definitions))
	for _, def := range s.config.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Key < defs[j].Key })
	return defs
}

// Get returns the stored value of key. ok is false when the key was never
// written; that is not an error. Errors from the Storage propagate.
func (s *Store) Get(ctx context.Context, key string) (value interface{}, ok bool, err error) {
	if key == "" {
		return nil, false, ErrInvalidKey
	}
	if s.config.storage == nil {
		return nil, false, ErrStorageUnavailable
	}

	if s.config.cache != nil {
		if pref, err := s.getFromCache(ctx, key); err == nil {
			return pref.Value, true, nil
		}
	}

	pref, err := s.config.storage.Get(ctx, s.config.namespace, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}

	if s.config.cache != nil {
		s.setToCache(ctx, pref)
	}

	return pref.Value, true, nil
}

// GetOrDefault returns the stored value of key, or the default of its
// definition when the key is absent. Undefined absent keys yield nil.
func (s *Store) GetOrDefault(ctx context.Context, key string) (interface{}, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return value, nil
	}
	if def, exists := s.Definition(key); exists {
		return def.DefaultValue, nil
	}
	return nil, nil
}

// Set persists value under key. Defined keys are validated against their
// definition; other keys only need to be JSON-serializable.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.config.storage == nil {
		return ErrStorageUnavailable
	}

	var typ string
	if def, exists := s.Definition(key); exists {
		if err := validateValue(value, def); err != nil {
			return err
		}
		typ = def.Type
	} else if err := validateFreeform(value); err != nil {
		return err
	}

	pref := &Preference{
		Namespace: s.config.namespace,
		Key:       key,
		Value:     value,
		Type:      typ,
		UpdatedAt: time.Now(),
	}

	if err := s.config.storage.Set(ctx, pref); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	if s.config.cache != nil {
		s.setToCache(ctx, pref)
	}

	s.config.logger.Debug("Preference saved", "namespace", pref.Namespace, "key", key)
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.config.storage == nil {
		return ErrStorageUnavailable
	}

	if err := s.config.storage.Delete(ctx, s.config.namespace, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	if s.config.cache != nil {
		s.deleteFromCache(ctx, key)
	}

	return nil
}

// All returns every stored key and value of the namespace.
func (s *Store) All(ctx context.Context) (map[string]interface{}, error) {
	if s.config.storage == nil {
		return nil, ErrStorageUnavailable
	}

	prefs, err := s.config.storage.GetAll(ctx, s.config.namespace)
	if err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}

	values := make(map[string]interface{}, len(prefs))
	for key, pref := range prefs {
		values[key] = pref.Value
	}
	return values, nil
}

// Region returns the saved language code, or DefaultRegion when none is saved
// or the saved one is empty.
func (s *Store) Region(ctx context.Context) (string, error) {
	value, ok, err := s.Get(ctx, RegionKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultRegion, nil
	}
	region, isString := value.(string)
	if !isString {
		return "", fmt.Errorf("%w: %q holds %T", ErrInvalidValue, RegionKey, value)
	}
	if region == "" {
		return DefaultRegion, nil
	}
	return region, nil
}

// SetRegion saves the language code.
func (s *Store) SetRegion(ctx context.Context, region string) error {
	return s.Set(ctx, RegionKey, region)
}

// ResizeSwitchState returns the "No Resize" toggle, false when unset.
func (s *Store) ResizeSwitchState(ctx context.Context) (bool, error) {
	value, ok, err := s.Get(ctx, ResizeSwitchStateKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	state, isBool := value.(bool)
	if !isBool {
		return false, fmt.Errorf("%w: %q holds %T", ErrInvalidValue, ResizeSwitchStateKey, value)
	}
	return state, nil
}

// SetResizeSwitchState saves the "No Resize" toggle.
func (s *Store) SetResizeSwitchState(ctx context.Context, state bool) error {
	return s.Set(ctx, ResizeSwitchStateKey, state)
}

// Close releases the Storage and Cache.
func (s *Store) Close() error {
	var errs []error
	if s.config.cache != nil {
		if err := s.config.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if s.config.storage != nil {
		if err := s.config.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) cacheKey(key string) string {
	return fmt.Sprintf("pref:%s:%s", s.config.namespace, key)
}

func (s *Store) getFromCache(ctx context.Context, key string) (*Preference, error) {
	data, err := s.config.cache.Get(ctx, s.cacheKey(key))
	if err != nil {
		return nil, err
	}

	raw, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected cached type %T", ErrCacheUnavailable, data)
	}

	var pref Preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, err
	}

	return &pref, nil
}

func (s *Store) setToCache(ctx context.Context, pref *Preference) {
	data, err := json.Marshal(pref)
	if err != nil {
		s.config.logger.Error("Failed to marshal preference for cache", "error", err)
		return
	}

	if err := s.config.cache.Set(ctx, s.cacheKey(pref.Key), data, s.config.cacheTTL); err != nil {
		s.config.logger.Error("Failed to cache preference", "error", err)
	}
}

func (s *Store) deleteFromCache(ctx context.Context, key string) {
	if err := s.config.cache.Delete(ctx, s.cacheKey(key)); err != nil {
		s.config.logger.Error("Failed to delete preference from cache", "error", err)
	}
}
