// internal/storage/kv/interface.go
package kv

import (
	"context"

	"github.com/newthinker/signaldeck/internal/core"
)

// ErrNotFound is returned by Read when no value is stored under the key.
var ErrNotFound = core.ErrNotFound

// Storage defines the interface for small key/value persistence backends.
type Storage interface {
	// Read retrieves the value stored under key
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, replacing any previous value
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the value under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a value is stored under key
	Exists(ctx context.Context, key string) (bool, error)
}

// Closer is implemented by backends that hold connections.
type Closer interface {
	Close() error
}

// Close releases s if it holds resources.
func Close(s Storage) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
