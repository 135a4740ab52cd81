package rate

import "errors"

var (
	// ErrRateLimited is returned once a key exceeds its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter I/O failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
