package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/user_service/pkg/events"
	"github.com/Skotchmaster/user_service/pkg/logging"
	"github.com/Skotchmaster/user_service/pkg/metrics"
	"github.com/Skotchmaster/user_service/pkg/tokens"
	"github.com/Skotchmaster/user_service/services/user/internal/cache"
	"github.com/Skotchmaster/user_service/services/user/internal/models"
	"github.com/Skotchmaster/user_service/services/user/internal/repo"
	"github.com/Skotchmaster/user_service/services/user/internal/revocation"
)

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	RecordLogin(ctx context.Context, id uint, at time.Time) error
	Ping(ctx context.Context) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, digest string) bool
	NeedsRehash(digest string) bool
}

type Deps struct {
	Users       UserStore
	Hasher      PasswordHasher
	Codec       *tokens.Codec
	Revocations *revocation.Registry
	// Cache may be nil, which disables caching.
	Cache   *cache.SessionCache
	Events  events.Publisher
	Metrics *metrics.Metrics
}

type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// StrictRevocation re-checks the revocation list on token cache hits and
	// evicts the token's cache entry on revoke. Off, a revoked token may keep
	// resolving from cache until its entry expires.
	StrictRevocation bool
}

func DefaultOptions() Options {
	return Options{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// AuthService coordinates the credential store, hasher, token codec,
// revocation list and session cache. Apart from a lazily built decoy
// digest it keeps no state of its own.
type AuthService struct {
	users       UserStore
	hasher      PasswordHasher
	codec       *tokens.Codec
	revocations *revocation.Registry
	cache       *cache.SessionCache
	events      events.Publisher
	metrics     *metrics.Metrics
	opts        Options
	now         func() time.Time

	decoyOnce   sync.Once
	decoyDigest string
}

func New(d Deps, opts Options) *AuthService {
	def := DefaultOptions()
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = def.AccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = def.RefreshTTL
	}
	pub := d.Events
	if pub == nil {
		pub = events.Nop{}
	}
	return &AuthService{
		users:       d.Users,
		hasher:      d.Hasher,
		codec:       d.Codec,
		revocations: d.Revocations,
		cache:       d.Cache,
		events:      pub,
		metrics:     d.Metrics,
		opts:        opts,
		now:         time.Now,
	}
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

// Authenticate returns the active user matching the credentials. A cached
// record whose hash verifies is accepted without touching the store.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.authenticate", "username", username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	key := cache.AuthUserKey(username)
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		if cached.IsActive && s.hasher.Verify(ctx, password, cached.PasswordHash) {
			return cached, nil
		}
	case errors.Is(err, cache.ErrUnavailable):
		l.Warn("cache_get_failed", "key_family", "auth_user", "error", err)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrUserNotFound) {
		// Unknown usernames pay for one verify so timing matches a wrong password.
		s.hasher.Verify(ctx, password, s.decoy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		l.Error("authenticate_failed", "status", 503, "reason", "credential store unavailable", "error", err)
		return nil, fmt.Errorf("%w: find user: %v", ErrDependencyUnavailable, err)
	}
	verified := s.hasher.Verify(ctx, password, user.PasswordHash)
	if !user.IsActive || !verified {
		return nil, ErrInvalidCredentials
	}

	s.cachePut(ctx, key, user, 0)
	return user, nil
}

// decoy returns a digest in the current format that no password matches.
func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash(context.Background(), "decoy:"+uuid.NewString())
		if err == nil {
			s.decoyDigest = digest
		}
	})
	return s.decoyDigest
}

// Resolve maps an access token to its current user.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.resolve")
	user, err := s.resolve(ctx, l, token)
	s.metrics.Resolution(outcomeOf(err))
	return user, err
}

func (s *AuthService) resolve(ctx context.Context, l *slog.Logger, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	key := cache.UserTokenKey(token)
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		if !s.opts.StrictRevocation {
			return cached, nil
		}
		revoked, rerr := s.revocations.IsRevoked(ctx, token)
		if rerr != nil {
			l.Error("resolve_failed", "status", 503, "reason", "revocation list unavailable", "error", rerr)
			return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, rerr)
		}
		if revoked {
			s.cacheDelete(ctx, key)
			return nil, ErrRevokedToken
		}
		return cached, nil
	case errors.Is(err, cache.ErrUnavailable):
		l.Warn("cache_get_failed", "key_family", "user_token", "error", err)
	}

	claims, err := s.codec.DecodeKind(token, tokens.KindAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		l.Error("resolve_failed", "status", 503, "reason", "revocation list unavailable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		l.Error("resolve_failed", "status", 503, "reason", "credential store unavailable", "error", err)
		return nil, fmt.Errorf("%w: find user: %v", ErrDependencyUnavailable, err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	// Never cache a token resolution past the token's own expiry.
	ttl := s.cache.TTL()
	if remaining := claims.ExpiresAt.Time.Sub(s.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		s.cachePut(ctx, key, user, ttl)
	}
	return user, nil
}

// Revoke puts token on the revocation list until it expires. Unparseable
// and expired tokens are ignored.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "user.revoke")

	if err := s.revocations.Revoke(ctx, token); err != nil {
		l.Error("revoke_failed", "status", 503, "error", err)
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	s.metrics.Revocation()

	if s.opts.StrictRevocation {
		s.cacheDelete(ctx, cache.UserTokenKey(token))
	}

	if claims, err := s.codec.Decode(token); err == nil {
		s.publish(ctx, events.Event{Type: events.TypeTokenRevoked, Username: claims.Subject})
	}
	return nil
}

// Login authenticates and issues an access/refresh pair. Login bookkeeping,
// legacy hash upgrades and the login event are best effort.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "user.login", "username", username)

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			s.metrics.Login("unavailable")
			return nil, err
		}
		s.metrics.Login("invalid_credentials")
		l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.codec.CreatePair(user.Username, string(user.Role), user.Role.Scopes(), s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		s.metrics.Login("error")
		l.Error("login_failed", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		l.Warn("record_login_failed", "error", err)
	}
	s.upgradeHash(ctx, l, user, password)
	s.publish(ctx, events.Event{Type: events.TypeUserLoggedIn, UserID: user.ID, Username: user.Username, At: now})

	s.metrics.Login("success")
	l.Info("login_successful")
	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.opts.AccessTTL.Seconds()),
		AccessExp:    pair.AccessExp,
		RefreshExp:   pair.RefreshExp,
		User:         user,
	}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, l *slog.Logger, user *models.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	digest, err := s.hasher.Hash(ctx, password)
	if err != nil {
		l.Warn("rehash_failed", "error", err)
		return
	}
	if _, err := s.users.Update(ctx, user.ID, models.UserPatch{PasswordHash: &digest}); err != nil {
		l.Warn("rehash_failed", "error", err)
		return
	}
	s.cacheDelete(ctx, cache.AuthUserKey(user.Username))
}

func (s *AuthService) cachePut(ctx context.Context, key string, u *models.User, ttl time.Duration) {
	if err := s.cache.Put(ctx, key, u, ttl); err != nil {
		logging.FromContext(ctx).Warn("cache_put_failed", "error", err)
	}
}

func (s *AuthService) cacheDelete(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logging.FromContext(ctx).Warn("cache_delete_failed", "error", err)
	}
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", e.Type, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRevokedToken):
		return "revoked"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrDependencyUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	}
	return "error"
}
