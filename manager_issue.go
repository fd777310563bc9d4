package tokenguard

import (
	"context"
	"fmt"

	"github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Issue signs a new access and refresh token pair for req. Both tokens share
// the request's session id, fingerprint and device id.
//
// Any failure returns ErrIssuanceFailed wrapping the cause; no partial pair
// is ever returned.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*TokenPair, error) {
	if !m.ready() {
		return nil, ErrManagerNotReady
	}

	res := flows.RunIssue(ctx, flows.IssueInput{
		Subject:     req.Subject,
		SessionID:   req.SessionID,
		Fingerprint: req.Fingerprint,
		DeviceID:    req.DeviceID,
		Scope:       req.Scope,
	}, m.flows.Issue)

	if res.Failure != flows.IssueFailureNone {
		err := fmt.Errorf("%w: %v", ErrIssuanceFailed, res.Err)
		m.metricInc(MetricIssueFailure)
		m.log.WithFields(logrus.Fields{
			"subject":    req.Subject,
			"session_id": req.SessionID,
			"stage":      issueFailureStage(res.Failure),
		}).WithError(res.Err).Error("token issuance failed")
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventIssueFailure,
			subject:   req.Subject,
			sessionID: req.SessionID,
			err:       err,
			metadata:  map[string]string{"stage": issueFailureStage(res.Failure)},
		})
		return nil, err
	}

	m.metricInc(MetricIssueSuccess)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventIssueSuccess,
		success:   true,
		subject:   req.Subject,
		sessionID: req.SessionID,
		tokenID:   res.Pair.Access.TokenID,
	})
	return pairFromFlow(res.Pair), nil
}

// NewSessionID returns a random session id for callers starting a session.
func NewSessionID() string {
	return uuid.NewString()
}

func issueFailureStage(kind flows.IssueFailureKind) string {
	switch kind {
	case flows.IssueFailureInvalidRequest:
		return "invalid_request"
	case flows.IssueFailureTokenID:
		return "token_id"
	case flows.IssueFailureEncode:
		return "encode"
	default:
		return "unknown"
	}
}
