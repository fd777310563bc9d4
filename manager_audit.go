package tokenguard

import (
	"context"
	"errors"
)

const (
	auditEventIssueSuccess     = "issue_success"
	auditEventIssueFailure     = "issue_failure"
	auditEventVerifyFailure    = "verify_failure"
	auditEventRefreshSuccess   = "refresh_success"
	auditEventRefreshInvalid   = "refresh_invalid"
	auditEventRefreshRejected  = "refresh_rejected"
	auditEventTokenRevoked     = "token_revoked"
	auditEventSessionRevoked   = "session_revoked"
	auditEventSubjectRevoked   = "subject_revoked"
	auditEventRegistryFailure  = "revocation_registry_failure"
	auditEventCleanupCompleted = "cleanup_completed"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrMalformed           AuditErrorCode = "malformed_token"
	auditErrInvalidSignature    AuditErrorCode = "invalid_signature"
	auditErrExpired             AuditErrorCode = "token_expired"
	auditErrRevoked             AuditErrorCode = "token_revoked"
	auditErrInvalidAudience     AuditErrorCode = "invalid_audience"
	auditErrInsufficientScope   AuditErrorCode = "insufficient_scope"
	auditErrRefreshDenied       AuditErrorCode = "refresh_denied"
	auditErrIssuanceFailed      AuditErrorCode = "issuance_failed"
	auditErrSignerUnavailable   AuditErrorCode = "signer_unavailable"
	auditErrRegistryUnavailable AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

// auditRecord is what a call site knows about the event.
type auditRecord struct {
	eventType string
	success   bool
	subject   string
	sessionID string
	tokenID   string
	err       error
	metadata  map[string]string
}

func (m *Manager) emitAudit(ctx context.Context, rec auditRecord) {
	if m == nil || m.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: rec.eventType,
		Subject:   rec.subject,
		SessionID: rec.sessionID,
		TokenID:   rec.tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   rec.success,
		Metadata:  rec.metadata,
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMalformedToken):
		return auditErrMalformed
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrInvalidAudience):
		return auditErrInvalidAudience
	case errors.Is(err, ErrInsufficientScope):
		return auditErrInsufficientScope
	case errors.Is(err, ErrRefreshDenied):
		return auditErrRefreshDenied
	case errors.Is(err, ErrIssuanceFailed):
		return auditErrIssuanceFailed
	case errors.Is(err, ErrSignerUnavailable):
		return auditErrSignerUnavailable
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrRegistryUnavailable
	default:
		return auditErrInternal
	}
}
