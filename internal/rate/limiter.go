package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
	// Timeout bounds each counter round trip. Zero leaves only the caller's deadline.
	Timeout time.Duration
}

// incrScript increments the window counter and arms its expiry in one step.
// A counter found without an expiry is re-armed, so it can never pin a client.
const incrScript = `
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrLua = redis.NewScript(incrScript)

// Limiter counts attempts per endpoint and client IP in fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one attempt and returns ErrRateLimited when the window
// budget is exhausted.
func (l *Limiter) Allow(ctx context.Context, endpoint, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.key(endpoint, ip), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Attempts returns the attempt count in the current window.
func (l *Limiter) Attempts(ctx context.Context, endpoint, ip string) (int, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	count, err := l.redis.Get(ctx, l.key(endpoint, ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(endpoint, ip string) string {
	return l.config.Prefix + ":" + endpoint + ":" + ip
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	count, err := incrLua.Run(ctx, l.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

func (l *Limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.config.Timeout)
}
