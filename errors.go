package tokenauth

import "errors"

var (
	// ErrUnauthorized is the single client-visible class for every rejected token.
	ErrUnauthorized = errors.New("unauthorized")

	// Reason sentinels. They are joined with ErrUnauthorized and never shown
	// to clients.
	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrKindMismatch     = errors.New("token kind mismatch")
	ErrClaimsIncomplete = errors.New("token claims incomplete")
	ErrNotBound         = errors.New("refresh token not bound to subject")
	ErrBlacklisted      = errors.New("access token revoked")

	// ErrStoreUnavailable reports a revocation store failure while creating
	// or rotating a session.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
	// ErrSessionCreationFailed reports a signing failure during issuance.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSubjectRequired is returned by IssueSession for an empty subject id.
	ErrSubjectRequired = errors.New("subject id required")
	// ErrInvalidRole is returned when a role outside GUEST, USER, ADMIN is used.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRateLimited is returned by AllowAttempt once the window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
