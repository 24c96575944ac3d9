// Package morestickers defines the core types used by the preference store.
package morestickers

import (
	"time"
)

// Constants for the value types a PreferenceDefinition may declare.
const (
	// StringType represents a preference value that is a string.
	StringType string = "string"
	// BoolType represents a preference value that is a boolean.
	BoolType string = "boolean"
	// NumberType represents an integer or floating-point preference value.
	NumberType string = "number"
	// JSONType represents any JSON-serializable value.
	JSONType string = "json"
	// EnumType restricts the value to PreferenceDefinition.AllowedValues.
	EnumType string = "enum"
)

// Well-known keys persisted by the add-on.
const (
	// RegionKey holds the two-letter language code selecting the string table.
	RegionKey = "region"
	// ResizeSwitchStateKey holds the "No Resize" toggle of the settings panel.
	ResizeSwitchStateKey = "resizeSwitchState"

	// DefaultRegion is returned by Store.Region when no region was saved.
	DefaultRegion = "en"
	// DefaultNamespace scopes keys when several add-ons share one host store.
	DefaultNamespace = "moreStickers"
)

// Preference is a single stored key/value pair as seen by Storage implementations.
type Preference struct {
	// Namespace isolates the keys of one add-on inside a shared store.
	Namespace string `json:"namespace"`
	// Key is the string identifier of the preference, e.g. "region".
	Key string `json:"key"`
	// Value is any JSON-serializable value. Storage backends round-trip it through JSON.
	Value interface{} `json:"value"`
	// Type is the declared type of the value when the key has a definition, empty otherwise.
	Type string `json:"type,omitempty"`
	// UpdatedAt records the last write.
	UpdatedAt time.Time `json:"updated_at"`
}

// PreferenceDefinition declares the type, default and constraints of a key.
// Keys without a definition are stored as free-form JSON values.
type PreferenceDefinition struct {
	Key           string        `json:"key"`
	Type          string        `json:"type"`
	DefaultValue  interface{}   `json:"default_value,omitempty"`
	AllowedValues []interface{} `json:"allowed_values,omitempty"`
	// ValidateFunc runs after the type and AllowedValues checks.
	ValidateFunc func(value interface{}) error `json:"-"`
}

// Config holds the internal configuration of a Store. It is populated by
// applying Options in New.
type Config struct {
	storage     Storage
	cache       Cache
	logger      Logger
	namespace   string
	cacheTTL    time.Duration
	definitions map[string]PreferenceDefinition
}

// Option configures a Store.
type Option func(*Config)

// WithStorage sets the persistence backend. It is required: without it every
// read and write fails with ErrStorageUnavailable.
func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithCache enables cache-aside reads through the given Cache.
func WithCache(cache Cache) Option {
	return func(c *Config) {
		c.cache = cache
	}
}

// WithCacheTTL sets how long cached preferences stay valid. Defaults to 24h.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.cacheTTL = ttl
	}
}

// WithLogger sets the Logger. Defaults to a JSON slog logger on stderr.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithNamespace scopes all keys of the Store. Defaults to DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(c *Config) {
		c.namespace = ns
	}
}
