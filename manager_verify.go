package tokenguard

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/sirupsen/logrus"
)

// Verify checks tokenStr and returns its claims. Checks run in order and the
// first failure wins: signature and shape, revocation, expiry, audience and
// issuer, then every scope in requiredScope.
//
// A registry that cannot answer yields ErrRevocationUnavailable; the token is
// never accepted in that case.
func (m *Manager) Verify(ctx context.Context, tokenStr string, requiredScope ...string) (*ClaimSet, error) {
	if !m.ready() {
		return nil, ErrManagerNotReady
	}

	var start time.Time
	if m.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			m.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}()
	}

	res := flows.RunVerify(ctx, tokenStr, requiredScope, m.flows.Verify)
	if res.Failure != flows.VerifyFailureNone {
		err := m.verifyError(res)
		m.recordVerifyFailure(ctx, res, err)
		return nil, err
	}

	m.metricInc(MetricVerifySuccess)
	claims := res.Claims.Clone()
	return &claims, nil
}

// verifyError maps a flow failure to the public sentinel.
func (m *Manager) verifyError(res flows.VerifyResult) error {
	switch res.Failure {
	case flows.VerifyFailureMalformed:
		return ErrMalformedToken
	case flows.VerifyFailureSignature:
		return ErrInvalidSignature
	case flows.VerifyFailureSigner:
		return fmt.Errorf("%w: %v", ErrSignerUnavailable, res.Err)
	case flows.VerifyFailureRevoked:
		return ErrTokenRevoked
	case flows.VerifyFailureRegistry:
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, res.Err)
	case flows.VerifyFailureExpired:
		return ErrTokenExpired
	case flows.VerifyFailureAudience:
		return ErrInvalidAudience
	case flows.VerifyFailureScope:
		return ErrInsufficientScope
	default:
		return ErrMalformedToken
	}
}

func (m *Manager) recordVerifyFailure(ctx context.Context, res flows.VerifyResult, err error) {
	m.metricInc(MetricVerifyFailure)
	switch res.Failure {
	case flows.VerifyFailureExpired:
		m.metricInc(MetricVerifyExpired)
	case flows.VerifyFailureRevoked:
		m.metricInc(MetricVerifyRevoked)
	case flows.VerifyFailureScope:
		m.metricInc(MetricVerifyScopeDenied)
	case flows.VerifyFailureRegistry:
		m.registryFailure(ctx, "verify", res.Err)
	case flows.VerifyFailureSigner:
		m.log.WithError(res.Err).Error("signer failed during verification")
	}

	m.emitAudit(ctx, auditRecord{
		eventType: auditEventVerifyFailure,
		subject:   res.Claims.Subject,
		sessionID: res.Claims.SessionID,
		tokenID:   res.Claims.TokenID,
		err:       err,
	})
}

func (m *Manager) registryFailure(ctx context.Context, op string, cause error) {
	m.metricInc(MetricRegistryFailure)
	m.log.WithFields(logrus.Fields{
		"op":      op,
		"backend": m.backend,
	}).WithError(cause).Error("revocation registry unavailable")
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventRegistryFailure,
		err:       ErrRevocationUnavailable,
		metadata:  map[string]string{"op": op, "backend": m.backend},
	})
}
