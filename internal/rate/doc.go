// Package rate provides the Redis fixed-window counter behind the login
// throttle.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys are
// <prefix>:<endpoint>:<clientIP>, so each endpoint has its own budget per
// client address.
//
// # What this package must NOT do
//
//   - Decide what happens when Redis is down; callers choose fail-open or
//     fail-closed from ErrRedisUnavailable.
//   - Be imported outside the tokenauth module.
package rate
