package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_service/pkg/db"
	"github.com/Skotchmaster/user_service/pkg/events"
	"github.com/Skotchmaster/user_service/services/user/internal/cache"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	name := "Alice"
	u, err := env.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "Secret123", FullName: &name})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "Secret123", u.PasswordHash)

	_, err = env.svc.Authenticate(ctx, "alice", "Secret123")
	require.NoError(t, err)
	assert.Contains(t, env.events.types(), events.TypeUserRegistered)

	_, err = env.svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "short username", in: RegisterInput{Username: "al", Email: "a@example.com", Password: "Secret123"}},
		{name: "bad username chars", in: RegisterInput{Username: "al-ice", Email: "a@example.com", Password: "Secret123"}},
		{name: "bad email", in: RegisterInput{Username: "alice", Email: "not-an-email", Password: "Secret123"}},
		{name: "short password", in: RegisterInput{Username: "alice", Email: "a@example.com", Password: "Se1"}},
		{name: "no uppercase", in: RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret123"}},
		{name: "no digit", in: RegisterInput{Username: "alice", Email: "a@example.com", Password: "SecretPass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_InvalidatesUserList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "alice", "Secret123")

	items, total, err := env.svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, total)
	require.True(t, env.mr.Exists(cache.AllUsersKey))

	_, err = env.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(cache.AllUsersKey))

	items, total, err = env.svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, total)
}

func TestAuthService_ListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		env.seed(t, fmt.Sprintf("user_%d", i), "Secret123")
	}

	items, total, err := env.svc.ListUsers(ctx, 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "user_2", items[0].Username)
	assert.False(t, env.mr.Exists(cache.AllUsersKey))

	_, _, err = env.svc.ListUsers(ctx, -1, 10)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = env.svc.ListUsers(ctx, 0, MaxListLimit+1)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = env.svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	require.NoError(t, db.Close(env.repo.DB))

	cached, _, err := env.svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, cached, 4)

	_, _, err = env.svc.ListUsers(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestAuthService_UpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.seed(t, "alice", "Secret123")
	env.seed(t, "bob", "Secret123")

	_, err := env.svc.Authenticate(ctx, "alice", "Secret123")
	require.NoError(t, err)
	require.True(t, env.mr.Exists(cache.AuthUserKey("alice")))

	name := "Alice Liddell"
	pw := "Changed123"
	u, err := env.svc.UpdateUser(ctx, alice.ID, UpdateInput{FullName: &name, Password: &pw})
	require.NoError(t, err)
	require.NotNil(t, u.FullName)
	assert.Equal(t, name, *u.FullName)
	assert.False(t, env.mr.Exists(cache.AuthUserKey("alice")))
	assert.Contains(t, env.events.types(), events.TypeUserUpdated)

	_, err = env.svc.Authenticate(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Authenticate(ctx, "alice", "Changed123")
	require.NoError(t, err)

	_, err = env.svc.UpdateUser(ctx, alice.ID, UpdateInput{})
	assert.ErrorIs(t, err, ErrValidation)

	bad := models.Role("root")
	_, err = env.svc.UpdateUser(ctx, alice.ID, UpdateInput{Role: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	weak := "weak"
	_, err = env.svc.UpdateUser(ctx, alice.ID, UpdateInput{Password: &weak})
	assert.ErrorIs(t, err, ErrValidation)

	taken := "bob@example.com"
	_, err = env.svc.UpdateUser(ctx, alice.ID, UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.svc.UpdateUser(ctx, 9999, UpdateInput{FullName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Health(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rep := env.svc.Health(ctx)
	assert.True(t, rep.Healthy)
	assert.Equal(t, StatusHealthy, rep.Database)
	assert.Equal(t, StatusHealthy, rep.Cache)

	env.mr.Close()
	rep = env.svc.Health(ctx)
	assert.True(t, rep.Healthy)
	assert.Equal(t, StatusUnavailable, rep.Cache)

	require.NoError(t, db.Close(env.repo.DB))
	rep = env.svc.Health(ctx)
	assert.False(t, rep.Healthy)
	assert.Equal(t, StatusUnavailable, rep.Database)

	disabled := newTestEnv(t, withoutCache())
	assert.Equal(t, StatusDisabled, disabled.svc.Health(ctx).Cache)
}
