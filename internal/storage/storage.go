// Package storage provides whole-object blob access for control files,
// derived artifacts and thumbnail size indices.
package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned when a key has no stored object.
var ErrNotExist = errors.New("storage: object does not exist")

// Store reads and writes whole objects by key. Implementations must be safe
// for concurrent use; writes replace objects atomically enough that readers
// never observe partial content.
type Store interface {
	// Read returns the object at key, or ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write persists data at key. contentType is advisory; drivers without
	// object metadata may ignore it.
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
