// Package cache is the advisory read-through cache for user lookups and
// token resolutions. Every failure reads as a miss to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/user_service/pkg/kv"
	"github.com/Skotchmaster/user_service/pkg/metrics"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
)

var (
	ErrMiss        = errors.New("cache: miss")
	ErrUnavailable = errors.New("cache: unavailable")
)

const (
	authUserPrefix  = "auth_user:"
	userTokenPrefix = "user_token:"

	AllUsersKey = "all_users"

	DefaultTTL     = 5 * time.Minute
	DefaultTimeout = 150 * time.Millisecond
)

func AuthUserKey(username string) string { return authUserPrefix + username }

func UserTokenKey(token string) string { return userTokenPrefix + token }

type Options struct {
	TTL     time.Duration
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// SessionCache stores user snapshots in a kv.Store. A nil *SessionCache is a
// disabled cache: reads miss and writes are dropped.
type SessionCache struct {
	store   kv.Store
	ttl     time.Duration
	timeout time.Duration
	metrics *metrics.Metrics
}

func New(store kv.Store, opts Options) *SessionCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &SessionCache{
		store:   store,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
}

func (c *SessionCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// cachedUser mirrors models.User but keeps the password hash, which the
// credential path needs and the public JSON form hides.
type cachedUser struct {
	ID           uint        `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"hashed_password"`
	FullName     *string     `json:"full_name,omitempty"`
	IsActive     bool        `json:"is_active"`
	Role         models.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
	LoginCount   int         `json:"login_count"`
}

func fromModel(u *models.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		IsActive:     u.IsActive,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
		LoginCount:   u.LoginCount,
	}
}

func (cu cachedUser) toModel() *models.User {
	return &models.User{
		ID:           cu.ID,
		Username:     cu.Username,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		FullName:     cu.FullName,
		IsActive:     cu.IsActive,
		Role:         cu.Role,
		CreatedAt:    cu.CreatedAt,
		LastLogin:    cu.LastLogin,
		LoginCount:   cu.LoginCount,
	}
}

type cachedList struct {
	Items []cachedUser `json:"items"`
	Total int64        `json:"total"`
}

func (c *SessionCache) Get(ctx context.Context, key string) (*models.User, error) {
	var cu cachedUser
	if err := c.getJSON(ctx, key, &cu); err != nil {
		return nil, err
	}
	return cu.toModel(), nil
}

// Put stores u under key. A zero ttl uses the cache default.
func (c *SessionCache) Put(ctx context.Context, key string, u *models.User, ttl time.Duration) error {
	if u == nil {
		return nil
	}
	return c.putJSON(ctx, key, fromModel(u), ttl)
}

func (c *SessionCache) GetList(ctx context.Context) ([]models.User, int64, error) {
	var cl cachedList
	if err := c.getJSON(ctx, AllUsersKey, &cl); err != nil {
		return nil, 0, err
	}
	items := make([]models.User, 0, len(cl.Items))
	for _, cu := range cl.Items {
		items = append(items, *cu.toModel())
	}
	return items, cl.Total, nil
}

func (c *SessionCache) PutList(ctx context.Context, items []models.User, total int64) error {
	cl := cachedList{Items: make([]cachedUser, 0, len(items)), Total: total}
	for i := range items {
		cl.Items = append(cl.Items, fromModel(&items[i]))
	}
	return c.putJSON(ctx, AllUsersKey, cl, 0)
}

func (c *SessionCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *SessionCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *SessionCache) getJSON(ctx context.Context, key string, dst any) error {
	if c == nil {
		return ErrMiss
	}
	family := familyOf(key)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		c.metrics.Cache(family, "miss")
		return ErrMiss
	case err != nil:
		c.metrics.Cache(family, "error")
		return fmt.Errorf("%w: get %s: %v", ErrUnavailable, family, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.metrics.Cache(family, "corrupt")
		return ErrMiss
	}
	c.metrics.Cache(family, "hit")
	return nil
}

func (c *SessionCache) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: json.Marshal failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, familyOf(key), err)
	}
	return nil
}

func familyOf(key string) string {
	switch {
	case strings.HasPrefix(key, authUserPrefix):
		return "auth_user"
	case strings.HasPrefix(key, userTokenPrefix):
		return "user_token"
	case key == AllUsersKey:
		return "all_users"
	}
	return "other"
}
