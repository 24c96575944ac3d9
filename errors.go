// errors.go
package morestickers

import "errors"

var (
	ErrInvalidKey         = errors.New("invalid preference key")
	ErrInvalidType        = errors.New("invalid preference type")
	ErrInvalidValue       = errors.New("invalid preference value")
	ErrNotFound           = errors.New("preference not found")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrCacheUnavailable   = errors.New("cache backend unavailable")
)
