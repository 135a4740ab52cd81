package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/revocation"
)

// Engine is the token lifecycle coordinator. It is safe for concurrent use.
type Engine struct {
	config  Config
	signer  *jwt.Manager
	store   *revocation.Store
	limiter *rate.Limiter
	issuer  flows.Issuer
	flows   flows.Deps
	logger  *slog.Logger
	metrics *Metrics
	audit   *audit.Dispatcher
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CookieConfig returns the refresh cookie settings.
func (e *Engine) CookieConfig() CookieConfig {
	return e.config.Cookie
}

// RefreshTTL is the lifetime of refresh tokens and their store records.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

// AccessTTL is the lifetime of access tokens.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// Ping measures one round trip to the revocation store.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	d, err := e.store.Ping(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return d, nil
}

// storeContext bounds a store call made outside the flows by
// Store.OperationTimeout.
func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Store.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.Store.OperationTimeout)
}

// AllowAttempt counts one login attempt for endpoint and ip. It returns
// ErrRateLimited once the window budget is spent. When the throttle store is
// unreachable, or misses Store.OperationTimeout, the attempt is allowed.
func (e *Engine) AllowAttempt(ctx context.Context, endpoint, ip string) error {
	if e == nil || e.limiter == nil {
		return nil
	}
	err := e.limiter.Allow(ctx, endpoint, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		e.logger.LogAttrs(ctx, slog.LevelInfo, "login attempt throttled",
			slog.String("endpoint", endpoint),
			slog.String("ip", ip),
		)
		return ErrRateLimited
	default:
		e.logger.LogAttrs(ctx, slog.LevelWarn, "rate limit store unavailable",
			slog.String("endpoint", endpoint),
			slog.Any("error", err),
		)
		return nil
	}
}

/*
====================================
TOKEN ISSUER
====================================
*/

// IssueAccess mints an ACCESS token. Empty subjectID or email are valid.
func (e *Engine) IssueAccess(subjectID string, role Role, email string) (string, error) {
	if e == nil || e.signer == nil {
		return "", ErrEngineNotReady
	}
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	token, err := e.issuer.IssueAccess(subjectID, string(role), email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	return token, nil
}

// IssueRefresh mints a REFRESH token. It does not bind the token to the
// subject; IssueSession does that.
func (e *Engine) IssueRefresh(subjectID string, role Role, email string) (string, error) {
	if e == nil || e.signer == nil {
		return "", ErrEngineNotReady
	}
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	token, err := e.issuer.IssueRefresh(subjectID, string(role), email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	return token, nil
}

/*
====================================
TOKEN VALIDATOR
====================================
*/

// IsUsableAs reports whether token verifies and carries the expected kind.
func (e *Engine) IsUsableAs(token string, kind jwt.Kind) bool {
	if e == nil || e.signer == nil {
		return false
	}
	return flows.VerifyKind(token, kind, e.flows.Validate.Verify).Failure == flows.FailureNone
}

// CheckRefresh returns the identity bound to token when it is the refresh
// token currently stored for its subject. Every failure is ErrUnauthorized
// joined with a reason sentinel.
func (e *Engine) CheckRefresh(ctx context.Context, token string) (ValidationResult, error) {
	if e == nil || e.signer == nil {
		return ValidationResult{}, ErrEngineNotReady
	}
	check := flows.RunCheckRefresh(ctx, token, e.flows.Validate)
	if !check.Valid() {
		e.recordRefreshFailure(ctx, check)
		return ValidationResult{}, unauthorized(check.Failure)
	}
	return ValidationResult{
		SubjectID: check.SubjectID,
		Email:     check.Email,
		Role:      Role(check.Role),
	}, nil
}

// CheckAccessNotRevoked reports whether token is a usable, unrevoked ACCESS
// token. A store failure yields false.
func (e *Engine) CheckAccessNotRevoked(ctx context.Context, token string) bool {
	_, err := e.Authenticate(ctx, token)
	return err == nil
}

// Authenticate is the gate decision: it returns the principal for a usable
// ACCESS token, or ErrUnauthorized joined with the reason.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if e == nil || e.signer == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	check := flows.RunCheckAccess(ctx, token, e.flows.Validate)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	failure := check.Failure
	if failure == flows.FailureNone && !Role(check.Claims.Role).Valid() {
		failure = flows.FailureClaimsIncomplete
	}

	if failure != flows.FailureNone {
		e.metricInc(MetricAccessRejected)
		switch failure {
		case flows.FailureBlacklisted:
			e.metricInc(MetricBlacklistHit)
		case flows.FailureStoreUnavailable:
			e.logger.LogAttrs(ctx, slog.LevelWarn, "access validation failed closed",
				slog.Any("error", check.Err),
			)
		}
		e.logger.LogAttrs(ctx, slog.LevelDebug, "access token rejected",
			slog.String("reason", failure.String()),
		)
		return nil, unauthorized(failure)
	}

	e.metricInc(MetricAccessAccepted)
	return &Principal{
		SubjectID: check.Claims.SubjectID,
		Role:      Role(check.Claims.Role),
		Email:     check.Claims.Email,
	}, nil
}

func (e *Engine) recordRefreshFailure(ctx context.Context, check flows.RefreshCheck) {
	e.metricInc(MetricRefreshFailure)
	switch check.Failure {
	case flows.FailureNotBound:
		e.metricInc(MetricRefreshNotBound)
	case flows.FailureExpired:
		e.metricInc(MetricRefreshExpired)
	case flows.FailureKindMismatch:
		e.metricInc(MetricRefreshKindMismatch)
	case flows.FailureStoreUnavailable:
		e.metricInc(MetricRefreshStoreUnavailable)
		e.logger.LogAttrs(ctx, slog.LevelWarn, "refresh validation failed closed",
			slog.Any("error", check.Err),
		)
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "refresh token rejected",
		slog.String("reason", check.Failure.String()),
	)
}

func reasonError(kind flows.FailureKind) error {
	switch kind {
	case flows.FailureMalformed:
		return ErrMalformed
	case flows.FailureSignatureInvalid:
		return ErrSignatureInvalid
	case flows.FailureExpired:
		return ErrExpired
	case flows.FailureKindMismatch:
		return ErrKindMismatch
	case flows.FailureClaimsIncomplete:
		return ErrClaimsIncomplete
	case flows.FailureNotBound:
		return ErrNotBound
	case flows.FailureBlacklisted:
		return ErrBlacklisted
	case flows.FailureStoreUnavailable:
		return ErrStoreUnavailable
	default:
		return ErrMalformed
	}
}

func unauthorized(kind flows.FailureKind) error {
	return errors.Join(ErrUnauthorized, reasonError(kind))
}
