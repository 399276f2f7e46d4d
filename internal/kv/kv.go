// Package kv defines the persistence contract for the application state.
//
// The console keeps its whole state under a small set of logical keys, each
// holding a JSON document. A backend only needs to store opaque bytes per
// key; all interpretation happens in the state package above it.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a key-value document store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
