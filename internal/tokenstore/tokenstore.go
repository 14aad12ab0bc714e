// Package tokenstore keeps short-lived secrets (OTP hashes, recovery token
// hashes, session ids) with a TTL and an atomic take for single use.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("tokenstore: not found")

// Store is implemented by the memory and redis backends.
type Store interface {
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value without consuming it.
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and removes it atomically. Of two concurrent
	// Take calls on the same key at most one succeeds.
	Take(ctx context.Context, key string) (string, error)
	// TakeIf removes key only while it holds want. A missing key or a
	// different value yields ErrNotFound and leaves the key untouched.
	TakeIf(ctx context.Context, key, want string) error
	// Incr adds one to the counter under key and returns the new value. The
	// counter expires ttl after it was created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}
