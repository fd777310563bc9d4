package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/tokenguard/internal/anomaly"
	"github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/sirupsen/logrus"
)

// Refresh exchanges a refresh token for a new pair bound to the device values
// in rc. With rotation enabled the presented token and every other token of
// its session are revoked first.
//
// Every refusal returns ErrRefreshDenied; the caller should re-authenticate.
// Registry and signer outages additionally wrap ErrRevocationUnavailable or
// ErrSignerUnavailable. A failed reissue returns ErrIssuanceFailed.
// The gate's reason is only available through RefreshWithResult, logs and
// audit events.
func (m *Manager) Refresh(ctx context.Context, refreshToken string, rc RequestContext) (*TokenPair, error) {
	res := m.RefreshWithResult(ctx, refreshToken, rc)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Pair, nil
}

// RefreshWithResult is Refresh with the server-side classification of the
// outcome. Reason must not be echoed to the client.
func (m *Manager) RefreshWithResult(ctx context.Context, refreshToken string, rc RequestContext) RefreshResult {
	if !m.ready() {
		return RefreshResult{Err: ErrManagerNotReady}
	}

	if rc.IP == "" {
		rc.IP = clientIPFromContext(ctx)
	}
	if rc.UserAgent == "" {
		rc.UserAgent = userAgentFromContext(ctx)
	}

	res := flows.RunRefresh(ctx, refreshToken, anomaly.Request{
		IP:          rc.IP,
		UserAgent:   rc.UserAgent,
		Fingerprint: rc.Fingerprint,
		DeviceID:    rc.DeviceID,
	}, m.flows.Refresh)

	claims := res.Claims
	record := auditRecord{
		subject:   claims.Subject,
		sessionID: claims.SessionID,
		tokenID:   claims.TokenID,
	}

	switch res.Failure {
	case flows.RefreshFailureNone:
		m.metricInc(MetricRefreshSuccess)
		if res.Revoked > 0 {
			m.metrics.Add(MetricTokenRevoked, res.Revoked)
		}
		record.eventType = auditEventRefreshSuccess
		record.success = true
		record.metadata = map[string]string{"revoked": strconv.Itoa(res.Revoked)}
		m.emitAudit(ctx, record)
		return RefreshResult{Pair: pairFromFlow(res.Pair), Revoked: res.Revoked}

	case flows.RefreshFailureVerify:
		cause := m.verifyError(flows.VerifyResult{Failure: res.Verify, Err: res.Err})
		m.metricInc(MetricRefreshFailure)
		record.eventType = auditEventRefreshInvalid
		record.err = cause
		m.emitAudit(ctx, record)
		if errors.Is(cause, ErrSignerUnavailable) {
			return RefreshResult{Err: fmt.Errorf("%w: %w", ErrRefreshDenied, cause), Cause: cause}
		}
		return RefreshResult{Err: ErrRefreshDenied, Cause: cause}

	case flows.RefreshFailureRejected:
		m.metricInc(MetricRefreshFailure)
		m.metricInc(MetricRefreshRejected)
		m.metricInc(reasonMetric(res.Reason))
		m.log.WithFields(logrus.Fields{
			"subject":    claims.Subject,
			"session_id": claims.SessionID,
			"reason":     string(res.Reason),
			"ip":         rc.IP,
		}).Warn("refresh rejected by security gate")
		record.eventType = auditEventRefreshRejected
		record.err = ErrRefreshDenied
		record.metadata = map[string]string{"reason": string(res.Reason)}
		m.emitAudit(ctx, record)
		return RefreshResult{Err: ErrRefreshDenied, Reason: res.Reason}

	case flows.RefreshFailureRegistry:
		m.metricInc(MetricRefreshFailure)
		m.registryFailure(ctx, "refresh", res.Err)
		cause := fmt.Errorf("%w: %v", ErrRevocationUnavailable, res.Err)
		return RefreshResult{Err: fmt.Errorf("%w: %w", ErrRefreshDenied, cause), Cause: cause}

	default:
		m.metricInc(MetricRefreshFailure)
		cause := fmt.Errorf("%w: %v", ErrIssuanceFailed, res.Err)
		m.log.WithFields(logrus.Fields{
			"subject":    claims.Subject,
			"session_id": claims.SessionID,
			"stage":      issueFailureStage(res.Issue),
		}).WithError(res.Err).Error("reissue after refresh failed")
		record.eventType = auditEventRefreshInvalid
		record.err = cause
		m.emitAudit(ctx, record)
		return RefreshResult{Err: cause, Cause: cause, Revoked: res.Revoked}
	}
}

func reasonMetric(r anomaly.Reason) MetricID {
	switch r {
	case anomaly.ReasonTooManyAttempts:
		return MetricRefreshThrottled
	case anomaly.ReasonAutomatedPattern:
		return MetricAutomatedRefresh
	case anomaly.ReasonRapidIPChange:
		return MetricRapidIPChange
	default:
		return MetricDeviceMismatch
	}
}
