package tokenauth

import (
	"context"
	"errors"
)

const (
	auditEventSessionIssued     = "session_issued"
	auditEventGuestAccessIssued = "guest_access_issued"
	auditEventRefreshAccess     = "refresh_access"
	auditEventRefreshFull       = "refresh_full"
	auditEventRefreshInvalid    = "refresh_invalid"
	auditEventRotationConflict  = "rotation_conflict"
	auditEventLogout            = "logout"
)

// AuditErrorCode is the stable reason string recorded on failed events.
type AuditErrorCode string

const (
	auditErrUnauthorized          AuditErrorCode = "unauthorized"
	auditErrNotBound              AuditErrorCode = "not_bound"
	auditErrExpired               AuditErrorCode = "expired"
	auditErrInvalidToken          AuditErrorCode = "invalid_token"
	auditErrSubjectRequired       AuditErrorCode = "subject_required"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	role Role,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		SubjectID: subjectID,
		Role:      string(role),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Reason = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized) && errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrNotBound):
		return auditErrNotBound
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrMalformed),
		errors.Is(err, ErrSignatureInvalid),
		errors.Is(err, ErrKindMismatch),
		errors.Is(err, ErrClaimsIncomplete),
		errors.Is(err, ErrBlacklisted):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrSubjectRequired):
		return auditErrSubjectRequired
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	default:
		return auditErrInternal
	}
}
