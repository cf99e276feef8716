// Package store defines the key-value capability the API persists into.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Entry is a single key/value pair returned by a prefix scan.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// KV is a string-keyed store of JSON values. GetByPrefix makes no ordering
// guarantee.
type KV interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	GetByPrefix(ctx context.Context, prefix string) ([]Entry, error)
}
