// Package morestickers defines interfaces for storage and caching used by the preference store.
package morestickers

import (
	"context"
	"time"
)

// Storage defines the methods required for a persistence backend.
// Get returns ErrNotFound for keys that were never written.
type Storage interface {
	Get(ctx context.Context, namespace, key string) (*Preference, error)
	Set(ctx context.Context, pref *Preference) error
	Delete(ctx context.Context, namespace, key string) error
	GetAll(ctx context.Context, namespace string) (map[string]*Preference, error)
	Close() error
}

// Cache defines the methods required for a caching backend.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
