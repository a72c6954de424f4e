// Package kv declares the key/value store the import core caches templates
// and roster snapshots in.
package kv

import (
	"context"
	"errors"
	"time"
)

// Store is a byte oriented key/value store with per-key expiry.
// A zero ttl keeps the entry until it is deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	Healthy(ctx context.Context) bool
}

// ErrUnavailable reports a store that is down or refusing calls.
var ErrUnavailable = errors.New("kv store unavailable")
