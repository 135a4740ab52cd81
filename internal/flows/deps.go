package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow.
type Deps struct {
	Issue     IssueDeps
	Validate  ValidateDeps
	Rotate    RotateDeps
	Terminate TerminateDeps
}

// RefreshReader is the read side of the RefreshRecord store.
type RefreshReader interface {
	RefreshToken(ctx context.Context, subjectID string) (string, bool, error)
}

// RefreshWriter is the write side of the RefreshRecord store.
type RefreshWriter interface {
	SaveRefresh(ctx context.Context, subjectID, token string, ttl time.Duration) error
	RotateRefresh(ctx context.Context, subjectID, expected, next string, ttl time.Duration) error
	DeleteRefresh(ctx context.Context, subjectID string) error
}

// BlacklistReader answers whether an access token was revoked.
type BlacklistReader interface {
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
}

// BlacklistWriter records access-token revocations.
type BlacklistWriter interface {
	Blacklist(ctx context.Context, accessToken string, ttl time.Duration) error
}

// VerifyFunc is the signer's verification entry point.
type VerifyFunc func(string) (*jwt.Claims, error)

func withStoreDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
