package jwt

import "errors"

var (
	// ErrMalformed is returned when a token cannot be parsed or carries invalid registered claims.
	ErrMalformed = errors.New("token malformed")
	// ErrSignatureInvalid is returned when the signature or signing algorithm does not match.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is returned when the current time is at or past the token's expiry.
	ErrExpired = errors.New("token expired")
)
