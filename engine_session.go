package tokenauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/tokenauth/internal/flows"
)

// IssueSession issues an access/refresh pair for an authenticated subject and
// binds the refresh token to it, superseding any previous record. A store
// failure returns ErrStoreUnavailable and no tokens.
func (e *Engine) IssueSession(ctx context.Context, subjectID string, role Role, email string) (*Session, error) {
	if e == nil || e.signer == nil {
		return nil, ErrEngineNotReady
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	res := flows.RunIssueSession(ctx, subjectID, string(role), email, e.flows.Issue)
	if res.Failure != flows.IssueFailureNone {
		var err error
		switch res.Failure {
		case flows.IssueFailureSubject:
			err = ErrSubjectRequired
		case flows.IssueFailurePersist:
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		default:
			err = fmt.Errorf("%w: %v", ErrSessionCreationFailed, res.Err)
		}
		e.metricInc(MetricSessionIssueFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "session issue failed",
			slog.String("subject_id", subjectID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, auditEventSessionIssued, false, subjectID, role, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventSessionIssued, true, subjectID, role, nil, nil)

	return &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		RefreshTTL:   e.config.JWT.RefreshTTL,
		SubjectID:    subjectID,
		Role:         role,
		Email:        email,
	}, nil
}

// IssueGuestAccess issues an ACCESS token with an empty subject and role
// GUEST. No refresh token is issued and nothing is written to the store.
func (e *Engine) IssueGuestAccess(ctx context.Context, email string) (*Session, error) {
	access, err := e.IssueAccess("", RoleGuest, email)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricGuestAccessIssued)
	e.emitAudit(ctx, auditEventGuestAccessIssued, true, "", RoleGuest, nil, nil)

	return &Session{
		AccessToken: access,
		Role:        RoleGuest,
		Email:       email,
	}, nil
}

// RotateAccessOnly exchanges a bound refresh token for a new access token.
// The stored refresh record is untouched.
func (e *Engine) RotateAccessOnly(ctx context.Context, presentedRefresh string) (*Session, error) {
	return e.rotate(ctx, presentedRefresh, flows.RotateAccessOnly)
}

// RotateBoth exchanges a bound refresh token for a new pair and replaces the
// stored record, so the presented token can never be used again.
func (e *Engine) RotateBoth(ctx context.Context, presentedRefresh string) (*Session, error) {
	return e.rotate(ctx, presentedRefresh, flows.RotateBoth)
}

func (e *Engine) rotate(ctx context.Context, presented string, mode flows.RotateMode) (*Session, error) {
	if e == nil || e.signer == nil {
		return nil, ErrEngineNotReady
	}

	eventType := auditEventRefreshAccess
	if mode == flows.RotateBoth {
		eventType = auditEventRefreshFull
	}

	res := flows.RunRotate(ctx, presented, mode, e.flows.Rotate)
	role := Role(res.Check.Role)

	switch res.Failure {
	case flows.RotateFailureNone:
	case flows.RotateFailureInvalid:
		e.recordRefreshFailure(ctx, res.Check)
		err := unauthorized(res.Check.Failure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": res.Check.Failure.String()}
		})
		return nil, err
	case flows.RotateFailureConflict:
		// Another rotation replaced the record after validation succeeded.
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRotationConflict)
		e.logger.LogAttrs(ctx, slog.LevelInfo, "refresh rotation lost race",
			slog.String("subject_id", res.Check.SubjectID),
		)
		err := unauthorized(flows.FailureNotBound)
		e.emitAudit(ctx, auditEventRotationConflict, false, res.Check.SubjectID, role, err, nil)
		return nil, err
	case flows.RotateFailurePersist:
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "refresh rotation persist failed",
			slog.String("subject_id", res.Check.SubjectID),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, eventType, false, res.Check.SubjectID, role, err, nil)
		return nil, err
	default:
		err := fmt.Errorf("%w: %v", ErrSessionCreationFailed, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "refresh token issue failed",
			slog.String("subject_id", res.Check.SubjectID),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, eventType, false, res.Check.SubjectID, role, err, nil)
		return nil, err
	}

	session := &Session{
		AccessToken: res.AccessToken,
		SubjectID:   res.Check.SubjectID,
		Role:        role,
		Email:       res.Check.Email,
	}
	if mode == flows.RotateBoth {
		session.RefreshToken = res.RefreshToken
		session.RefreshTTL = e.config.JWT.RefreshTTL
		e.metricInc(MetricRefreshFullSuccess)
	} else {
		e.metricInc(MetricRefreshAccessSuccess)
	}
	e.emitAudit(ctx, eventType, true, res.Check.SubjectID, role, nil, nil)

	return session, nil
}

// Terminate revokes presentedAccess for its remaining lifetime and deletes
// the refresh record named by presentedRefresh. Either may be empty. Each step
// is best effort and logged on failure; Terminate itself never fails.
func (e *Engine) Terminate(ctx context.Context, presentedAccess, presentedRefresh string) LogoutResult {
	if e == nil || e.signer == nil {
		return LogoutResult{}
	}

	res := flows.RunTerminate(ctx, presentedAccess, presentedRefresh, e.flows.Terminate)

	if res.RefreshErr != nil {
		e.metricInc(MetricLogoutStepFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "logout step failed",
			slog.String("step", "delete_refresh"),
			slog.String("subject_id", res.SubjectID),
			slog.Any("error", res.RefreshErr),
		)
	} else if presentedRefresh != "" && res.RefreshSkip != flows.FailureNone {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "logout refresh step skipped",
			slog.String("reason", res.RefreshSkip.String()),
		)
	}

	if res.AccessErr != nil {
		e.metricInc(MetricLogoutStepFailure)
		e.logger.LogAttrs(ctx, slog.LevelError, "logout step failed",
			slog.String("step", "blacklist_access"),
			slog.String("subject_id", res.SubjectID),
			slog.Any("error", res.AccessErr),
		)
	} else if presentedAccess != "" && res.AccessSkip != flows.FailureNone {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "logout access step skipped",
			slog.String("reason", res.AccessSkip.String()),
		)
	}

	e.metricInc(MetricLogout)
	if res.RefreshDeleted {
		e.metricInc(MetricLogoutRefreshDeleted)
	}
	if res.AccessRevoked {
		e.metricInc(MetricLogoutAccessRevoked)
	}

	out := LogoutResult{
		SubjectID:      res.SubjectID,
		RefreshDeleted: res.RefreshDeleted,
		AccessRevoked:  res.AccessRevoked,
	}
	e.emitAudit(ctx, auditEventLogout, true, res.SubjectID, "", nil, func() map[string]string {
		return map[string]string{
			"refresh_deleted": fmt.Sprint(out.RefreshDeleted),
			"access_revoked":  fmt.Sprint(out.AccessRevoked),
		}
	})

	return out
}
