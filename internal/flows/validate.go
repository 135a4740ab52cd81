package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// FailureKind is the internal validation taxonomy. Every kind other than
// FailureNone collapses to a single unauthorized outcome for clients.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureMalformed
	FailureSignatureInvalid
	FailureExpired
	FailureKindMismatch
	FailureClaimsIncomplete
	FailureNotBound
	FailureBlacklisted
	FailureStoreUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignatureInvalid:
		return "signature_invalid"
	case FailureExpired:
		return "expired"
	case FailureKindMismatch:
		return "kind_mismatch"
	case FailureClaimsIncomplete:
		return "claims_incomplete"
	case FailureNotBound:
		return "not_bound"
	case FailureBlacklisted:
		return "blacklisted"
	case FailureStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

var (
	errKindMismatch   = errors.New("token kind mismatch")
	errMissingSubject = errors.New("subject claim missing")
	errMissingEmail   = errors.New("email claim missing")
	errMissingRole    = errors.New("role claim missing or unknown")
	errNotBound       = errors.New("refresh token not bound to subject")
	errBlacklisted    = errors.New("access token revoked")
)

// KindCheck is the outcome of verifying a token and its kind.
type KindCheck struct {
	Failure FailureKind
	Err     error
	Claims  *jwt.Claims
}

// VerifyKind verifies token and requires claims.Kind == kind.
func VerifyKind(token string, kind jwt.Kind, verify VerifyFunc) KindCheck {
	claims, err := verify(token)
	if err != nil {
		return KindCheck{Failure: classifyVerify(err), Err: err}
	}
	if claims.Kind != kind {
		return KindCheck{Failure: FailureKindMismatch, Err: errKindMismatch, Claims: claims}
	}
	return KindCheck{Claims: claims}
}

func classifyVerify(err error) FailureKind {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return FailureExpired
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return FailureSignatureInvalid
	default:
		return FailureMalformed
	}
}

// ValidateDeps captures TokenValidator dependencies.
type ValidateDeps struct {
	Verify       VerifyFunc
	ValidRole    func(string) bool
	Refresh      RefreshReader
	Blacklist    BlacklistReader
	StoreTimeout time.Duration
}

// RefreshCheck is Valid{SubjectID, Email, Role} when Failure is FailureNone.
type RefreshCheck struct {
	Failure   FailureKind
	Err       error
	SubjectID string
	Email     string
	Role      string
	Claims    *jwt.Claims
}

// Valid reports whether the check succeeded.
func (r RefreshCheck) Valid() bool { return r.Failure == FailureNone }

// RunCheckRefresh decides whether token is the refresh token currently bound
// to its subject. A missing record and a mismatched record are the same
// outcome: FailureNotBound.
func RunCheckRefresh(ctx context.Context, token string, deps ValidateDeps) RefreshCheck {
	kc := VerifyKind(token, jwt.KindRefresh, deps.Verify)
	if kc.Failure != FailureNone {
		return RefreshCheck{Failure: kc.Failure, Err: kc.Err}
	}
	claims := kc.Claims

	if !claims.HasSubject() {
		return RefreshCheck{Failure: FailureClaimsIncomplete, Err: errMissingSubject, Claims: claims}
	}
	if !claims.HasEmail() {
		return RefreshCheck{Failure: FailureClaimsIncomplete, Err: errMissingEmail, Claims: claims}
	}
	if !claims.HasRole() || (deps.ValidRole != nil && !deps.ValidRole(claims.Role)) {
		return RefreshCheck{Failure: FailureClaimsIncomplete, Err: errMissingRole, Claims: claims}
	}

	// Sessions are never issued for an empty subject, so nothing can be bound.
	if claims.SubjectID == "" {
		return RefreshCheck{Failure: FailureNotBound, Err: errNotBound, Claims: claims}
	}

	storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
	defer cancel()
	stored, ok, err := deps.Refresh.RefreshToken(storeCtx, claims.SubjectID)
	if err != nil {
		return RefreshCheck{Failure: FailureStoreUnavailable, Err: err, Claims: claims}
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return RefreshCheck{Failure: FailureNotBound, Err: errNotBound, Claims: claims}
	}

	return RefreshCheck{
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      claims.Role,
		Claims:    claims,
	}
}

// AccessCheck is the outcome of checkAccessNotRevoked.
type AccessCheck struct {
	Failure FailureKind
	Err     error
	Claims  *jwt.Claims
}

// RunCheckAccess requires a verified ACCESS token with no blacklist entry.
// A store failure is reported as FailureStoreUnavailable, never as valid.
func RunCheckAccess(ctx context.Context, token string, deps ValidateDeps) AccessCheck {
	kc := VerifyKind(token, jwt.KindAccess, deps.Verify)
	if kc.Failure != FailureNone {
		return AccessCheck{Failure: kc.Failure, Err: kc.Err}
	}

	storeCtx, cancel := withStoreDeadline(ctx, deps.StoreTimeout)
	defer cancel()
	listed, err := deps.Blacklist.IsBlacklisted(storeCtx, token)
	if err != nil {
		return AccessCheck{Failure: FailureStoreUnavailable, Err: err, Claims: kc.Claims}
	}
	if listed {
		return AccessCheck{Failure: FailureBlacklisted, Err: errBlacklisted, Claims: kc.Claims}
	}

	return AccessCheck{Claims: kc.Claims}
}
