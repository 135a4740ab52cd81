// Package revocation holds the server-side state behind token rotation and
// logout: one RefreshRecord per subject (the only refresh token currently
// accepted for that subject) and BlacklistEntry keys for access tokens revoked
// before their natural expiry.
//
// # Redis layout
//
//	<refreshPrefix>:<subjectID>    -> current refresh token, TTL = refresh TTL
//	<blacklistPrefix>:<accessToken> -> "logout", TTL = token's remaining lifetime
//
// Expiry is delegated to Redis; nothing in this package runs in the background.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT parse tokens or decide
// whether a token is usable; that belongs to internal/flows.
//
// # What this package must NOT do
//
//   - Import tokenauth or jwt.
//   - Treat a missing key as an error on delete.
package revocation
