// Package middleware exposes the authentication gate and route guards built on
// top of tokenauth.Engine.
//
// # Guards
//
//   - [Gate] reads the Authorization header and attaches a principal. A
//     request without a bearer token passes through anonymously; a request
//     with an unusable token is rejected with 401.
//   - [RequireAuthenticated] rejects anonymous requests.
//   - [RequireRole] rejects anonymous requests (401) and principals outside
//     the allowed roles (403).
//   - [Chain] composes middleware in order.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// parse tokens or access Redis itself.
package middleware
