// Package httpapi is the HTTP delivery contract for the token lifecycle:
// login, social login, access-only and full refresh, and logout.
//
// Access tokens travel in the Authorization header as "Bearer <token>".
// Refresh tokens travel in an HttpOnly cookie whose attributes come from
// tokenauth.CookieConfig. Every body is a JSON envelope {code, message, data}.
// Token failures are always reported as a generic 401 so clients cannot tell
// why a token was refused.
package httpapi
