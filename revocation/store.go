package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every I/O failure talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRefreshMismatch is returned by RotateRefresh when the stored value is
// absent or differs from the expected token.
var ErrRefreshMismatch = errors.New("refresh record mismatch")

const blacklistValue = "logout"

const (
	rotateStatusMismatch int64 = 0
	rotateStatusRotated  int64 = 1
)

// Swaps KEYS[1] to ARGV[2] only while it still holds ARGV[1].
const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// Store is a Redis-backed RevocationStore.
type Store struct {
	redis           redis.UniversalClient
	refreshPrefix   string
	blacklistPrefix string
}

// NewStore creates a Store on the given client. The prefixes namespace the
// refresh-record and blacklist keys.
func NewStore(redis redis.UniversalClient, refreshPrefix, blacklistPrefix string) *Store {
	return &Store{
		redis:           redis,
		refreshPrefix:   refreshPrefix,
		blacklistPrefix: blacklistPrefix,
	}
}

func (s *Store) refreshKey(subjectID string) string {
	return s.refreshPrefix + ":" + subjectID
}

func (s *Store) blacklistKey(token string) string {
	return s.blacklistPrefix + ":" + token
}

// Put writes value under key with the given TTL, replacing any previous value.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s for key write", ttl)
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the value under key. ok is false when the key is absent.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	value, err = s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// Delete removes key. Deleting an absent key is not an error.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// SaveRefresh makes token the only accepted refresh token for subjectID,
// superseding any previous value.
func (s *Store) SaveRefresh(ctx context.Context, subjectID, token string, ttl time.Duration) error {
	return s.Put(ctx, s.refreshKey(subjectID), token, ttl)
}

// RefreshToken returns the stored refresh token for subjectID.
func (s *Store) RefreshToken(ctx context.Context, subjectID string) (string, bool, error) {
	return s.Get(ctx, s.refreshKey(subjectID))
}

// DeleteRefresh removes the RefreshRecord for subjectID. Idempotent.
func (s *Store) DeleteRefresh(ctx context.Context, subjectID string) error {
	return s.Delete(ctx, s.refreshKey(subjectID))
}

// RotateRefresh replaces the RefreshRecord for subjectID with next, but only
// while it still equals expected. Concurrent rotations of the same token have
// exactly one winner; the rest get ErrRefreshMismatch.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) RotateRefresh(ctx context.Context, subjectID, expected, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s for refresh rotation", ttl)
	}
	status, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.refreshKey(subjectID)},
		expected,
		next,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status == rotateStatusMismatch {
		return ErrRefreshMismatch
	}
	if status != rotateStatusRotated {
		return fmt.Errorf("%w: unexpected rotate status %d", ErrRedisUnavailable, status)
	}
	return nil
}

// Blacklist records accessToken as revoked for ttl. Writing the same token
// twice leaves the same observable state.
func (s *Store) Blacklist(ctx context.Context, accessToken string, ttl time.Duration) error {
	return s.Put(ctx, s.blacklistKey(accessToken), blacklistValue, ttl)
}

// IsBlacklisted reports whether accessToken has a live BlacklistEntry.
func (s *Store) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	return s.Exists(ctx, s.blacklistKey(accessToken))
}

// Ping measures one round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
