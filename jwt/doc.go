// Package jwt signs and verifies the compact credential tokens used for access
// and refresh. A Manager is constructed once from an immutable Config and holds
// no mutable state; Issue and Verify perform no I/O.
//
// Verify reports structural, signature and expiry failures as ErrMalformed,
// ErrSignatureInvalid and ErrExpired. It never rejects a token for business
// reasons such as the wrong Kind; that decision belongs to the caller.
package jwt
