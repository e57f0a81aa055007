package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/user_service/pkg/events"
	"github.com/Skotchmaster/user_service/pkg/logging"
	"github.com/Skotchmaster/user_service/services/user/internal/cache"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
	"github.com/Skotchmaster/user_service/services/user/internal/repo"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName *string
}

type UpdateInput struct {
	Email    *string
	FullName *string
	Password *string
	Role     *models.Role
	IsActive *bool
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.register", "username", in.Username)

	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		FullName:     in.FullName,
		IsActive:     true,
		Role:         models.RoleUser,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 503, "reason", "credential store unavailable", "error", err)
		return nil, fmt.Errorf("%w: insert user: %v", ErrDependencyUnavailable, err)
	}

	s.cacheDelete(ctx, cache.AllUsersKey)
	s.publish(ctx, events.Event{Type: events.TypeUserRegistered, UserID: user.ID, Username: user.Username})

	l.Info("register_successful", "user_id", user.ID)
	return user, nil
}

// ListUsers pages through users by id. Only the default first page is cached.
func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	l := logging.FromContext(ctx).With("svc", "user.list")

	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must not be negative", ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		return nil, 0, fmt.Errorf("%w: limit must not exceed %d", ErrValidation, MaxListLimit)
	}

	firstPage := offset == 0 && limit == DefaultListLimit
	if firstPage {
		items, total, err := s.cache.GetList(ctx)
		if err == nil {
			return items, total, nil
		}
		if errors.Is(err, cache.ErrUnavailable) {
			l.Warn("cache_get_failed", "key_family", "all_users", "error", err)
		}
	}

	items, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		l.Error("list_users_failed", "status", 503, "error", err)
		return nil, 0, fmt.Errorf("%w: list users: %v", ErrDependencyUnavailable, err)
	}

	if firstPage {
		if err := s.cache.PutList(ctx, items, total); err != nil {
			l.Warn("cache_put_failed", "error", err)
		}
	}
	return items, total, nil
}

// UpdateUser applies a partial profile update. At least one field must be set.
func (s *AuthService) UpdateUser(ctx context.Context, id uint, in UpdateInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update", "user_id", id)

	patch := models.UserPatch{
		Email:    in.Email,
		FullName: in.FullName,
		Role:     in.Role,
		IsActive: in.IsActive,
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return nil, err
		}
	}
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *in.Role)
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		digest, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			l.Error("update_error", "status", 500, "reason", "cannot hash the password", "error", err)
			return nil, err
		}
		patch.PasswordHash = &digest
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	user, err := s.users.Update(ctx, id, patch)
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, repo.ErrUserAlreadyExist):
		l.Warn("update_error", "status", 409, "reason", "email already in use")
		return nil, ErrConflict
	case err != nil:
		l.Error("update_error", "status", 503, "reason", "credential store unavailable", "error", err)
		return nil, fmt.Errorf("%w: update user: %v", ErrDependencyUnavailable, err)
	}

	s.cacheDelete(ctx, cache.AuthUserKey(user.Username), cache.AllUsersKey)
	s.publish(ctx, events.Event{Type: events.TypeUserUpdated, UserID: user.ID, Username: user.Username})

	l.Info("update_successful")
	return user, nil
}

type HealthReport struct {
	Healthy  bool
	Database string
	Cache    string
}

const (
	StatusHealthy     = "healthy"
	StatusUnavailable = "unavailable"
	StatusDisabled    = "disabled"
)

// Health pings the credential store and the cache. Only the store decides
// overall health; the cache is advisory.
func (s *AuthService) Health(ctx context.Context) HealthReport {
	l := logging.FromContext(ctx).With("svc", "user.health")
	rep := HealthReport{Healthy: true, Database: StatusHealthy, Cache: StatusHealthy}

	if err := s.users.Ping(ctx); err != nil {
		l.Error("health_check_failed", "dependency", "database", "error", err)
		rep.Healthy = false
		rep.Database = StatusUnavailable
	}

	switch {
	case s.cache == nil:
		rep.Cache = StatusDisabled
	default:
		if err := s.cache.Ping(ctx); err != nil {
			l.Warn("health_check_failed", "dependency", "cache", "error", err)
			rep.Cache = StatusUnavailable
		}
	}
	return rep
}
