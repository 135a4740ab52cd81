// Package tokenauth issues, validates, rotates and revokes signed session
// credentials for HTTP services. Refresh-token binding and access-token
// revocation state live in Redis.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([Session], [Principal], [MetricsSnapshot]). Flow
// orchestration, rate limiting and audit dispatch live under internal/ and
// are never exported.
//
// # Failure policy
//
// Every token-shape failure (malformed, bad signature, expired, wrong kind,
// not bound, blacklisted) surfaces as [ErrUnauthorized] joined with a reason
// sentinel. A store failure while validating is also unauthorized. A store
// failure while establishing a session surfaces as [ErrStoreUnavailable].
// Logout never fails from the caller's point of view.
package tokenauth
