package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_service/pkg/tokens"
	"github.com/Skotchmaster/user_service/services/user/internal/cache"
	"github.com/Skotchmaster/user_service/services/user/internal/config"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
	"github.com/Skotchmaster/user_service/services/user/internal/revocation"
)

func TestOpenStores_InProcessRevocationsSurviveCacheChurn(t *testing.T) {
	ctx := context.Background()
	cacheStore, revokedStore, err := openStores(ctx, config.Config{RefreshTTL: 7 * 24 * time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cacheStore.Close()
		_ = revokedStore.Close()
	})
	require.NotSame(t, cacheStore, revokedStore)

	codec, err := tokens.NewCodec([]byte("test-secret"), "HS256")
	require.NoError(t, err)
	pair, err := codec.CreatePair("alice", "user", []string{"user"}, time.Hour, time.Hour)
	require.NoError(t, err)

	reg := revocation.New(revokedStore, codec, time.Second)
	require.NoError(t, reg.Revoke(ctx, pair.AccessToken))

	sc := cache.New(cacheStore, cache.Options{TTL: time.Minute, Timeout: time.Second})
	u := &models.User{ID: 1, Username: "alice", Role: models.RoleUser, IsActive: true}
	for i := 0; i < 10001; i++ {
		require.NoError(t, sc.Put(ctx, cache.UserTokenKey(fmt.Sprintf("token-%d", i)), u, 0))
	}

	revoked, err := reg.IsRevoked(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestOpenStores_RedisShared(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheStore, revokedStore, err := openStores(context.Background(), config.Config{
		RedisURL:      "redis://" + mr.Addr(),
		RedisPoolSize: 2,
		CacheTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheStore.Close() })
	assert.Same(t, cacheStore, revokedStore)
}
