// Package revocation keeps the list of tokens that must no longer resolve.
// Each revoked token gets its own key that expires with the token.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Skotchmaster/user_service/pkg/kv"
	"github.com/Skotchmaster/user_service/pkg/tokens"
)

const keyPrefix = "revoked_tokens:"

type Registry struct {
	store   kv.Store
	codec   *tokens.Codec
	timeout time.Duration
	now     func() time.Time
}

func New(store kv.Store, codec *tokens.Codec, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Registry{store: store, codec: codec, timeout: timeout, now: time.Now}
}

// Key derives the storage key for token. The raw token never reaches the store.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Revoke records token until its own expiry. Tokens that fail to decode or
// have already expired are ignored. Repeated calls are harmless.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	exp, err := r.codec.ExpiresAt(token)
	if err != nil {
		return nil
	}
	ttl := exp.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.SetWithTTL(ctx, Key(token), []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *Registry) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	revoked, err := r.store.Exists(ctx, Key(token))
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}
