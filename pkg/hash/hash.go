package hash

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/Skotchmaster/user_service/pkg/logging"
)

var (
	ErrUnknownScheme = errors.New("unknown hash scheme")
	ErrMalformedHash = errors.New("malformed hash")
)

type Params struct {
	TimeCost    uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     uint32
}

func DefaultParams() Params {
	return Params{
		TimeCost:    3,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
		SaltLen:     16,
	}
}

// Hasher hashes new passwords with argon2id and verifies both argon2id and
// legacy bcrypt digests. Concurrent hash/verify calls are limited to the
// configured number of workers.
type Hasher struct {
	params Params
	slots  *semaphore.Weighted
}

func New(params Params, workers int) *Hasher {
	def := DefaultParams()
	if params.TimeCost == 0 {
		params.TimeCost = def.TimeCost
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = def.MemoryKiB
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.KeyLen == 0 {
		params.KeyLen = def.KeyLen
	}
	if params.SaltLen == 0 {
		params.SaltLen = def.SaltLen
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{params: params, slots: semaphore.NewWeighted(int64(workers))}
}

func (h *Hasher) Params() Params { return h.params }

func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("hash: wait for worker: %w", err)
	}
	defer h.slots.Release(1)

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash: salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.TimeCost, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLen)
	return encodeArgon2(h.params, salt, key), nil
}

// Verify never fails loudly: malformed digests, unknown schemes and
// cancelled contexts all report false.
func (h *Hasher) Verify(ctx context.Context, password, digest string) bool {
	l := logging.FromContext(ctx).With("component", "hash")

	if err := h.slots.Acquire(ctx, 1); err != nil {
		l.Warn("password_verify_error", "reason", "no worker", "error", err)
		return false
	}
	defer h.slots.Release(1)

	ok, err := verify(password, digest)
	if err != nil {
		l.Warn("password_verify_error", "error", err)
		return false
	}
	return ok
}

// NeedsRehash reports whether digest was produced by the legacy scheme or
// with weaker argon2 parameters than the hasher's.
func (h *Hasher) NeedsRehash(digest string) bool {
	if isBcrypt(digest) {
		return true
	}
	p, _, key, err := decodeArgon2(digest)
	if err != nil {
		return true
	}
	return p.TimeCost < h.params.TimeCost ||
		p.MemoryKiB < h.params.MemoryKiB ||
		p.Parallelism < h.params.Parallelism ||
		uint32(len(key)) < h.params.KeyLen
}

func verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		p, salt, key, err := decodeArgon2(digest)
		if err != nil {
			return false, err
		}
		other := argon2.IDKey([]byte(password), salt, p.TimeCost, p.MemoryKiB, p.Parallelism, uint32(len(key)))
		return subtle.ConstantTimeCompare(key, other) == 1, nil
	case isBcrypt(digest):
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnknownScheme
	}
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

func encodeArgon2(p Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.TimeCost, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeArgon2(digest string) (Params, []byte, []byte, error) {
	var p Params
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.TimeCost, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	if p.TimeCost == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

// LegacyHash produces a bcrypt digest. Kept for fixtures and for migrating
// records created by older deployments.
func LegacyHash(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}
