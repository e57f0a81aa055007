// Package kv is the key-value layer behind the session cache and the
// revocation registry.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing or expired key.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable reports a transport failure or timeout.
	ErrUnavailable = errors.New("kv: store unavailable")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
