package password

import "errors"

var (
	// ErrInvalidHash reports an encoded hash that is not a supported PHC string.
	ErrInvalidHash = errors.New("invalid argon2id hash")
	// ErrPasswordLength reports a password outside the configured byte bounds.
	ErrPasswordLength = errors.New("password length out of bounds")
	// ErrWeakParams reports hasher parameters below the accepted floor.
	ErrWeakParams = errors.New("argon2id parameters too weak")
)
