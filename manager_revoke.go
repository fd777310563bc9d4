package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Revoke adds tokenID to the revocation registry. Every later verification
// of that id fails until the entry expires after RefreshTTL. Revoking an id
// twice is a no-op.
func (m *Manager) Revoke(ctx context.Context, tokenID string) error {
	if !m.ready() {
		return ErrManagerNotReady
	}
	if tokenID == "" {
		return revocation.ErrEmptyTokenID
	}

	entry, _ := m.index.Get(tokenID)
	if err := flows.RunRevoke(ctx, tokenID, m.flows.Revoke); err != nil {
		return m.revokeError(ctx, "revoke", err)
	}

	m.metricInc(MetricTokenRevoked)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventTokenRevoked,
		success:   true,
		subject:   entry.Claims.Subject,
		sessionID: entry.Claims.SessionID,
		tokenID:   tokenID,
	})
	return nil
}

// RevokeSession revokes every indexed token of sessionID and returns how many
// ids were revoked.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) (int, error) {
	if !m.ready() {
		return 0, ErrManagerNotReady
	}

	unlock := m.lockSession(sessionID)
	n, err := flows.RunRevokeSession(ctx, sessionID, m.flows.Revoke)
	unlock()

	m.metrics.Add(MetricTokenRevoked, n)
	if err != nil {
		return n, m.revokeError(ctx, "revoke_session", err)
	}

	m.metricInc(MetricSessionRevoked)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSessionRevoked,
		success:   true,
		sessionID: sessionID,
		metadata:  map[string]string{"revoked": strconv.Itoa(n)},
	})
	return n, nil
}

// RevokeSubject revokes every indexed token issued to subject.
func (m *Manager) RevokeSubject(ctx context.Context, subject string) (int, error) {
	if !m.ready() {
		return 0, ErrManagerNotReady
	}

	n, err := flows.RunRevokeSubject(ctx, subject, m.flows.Revoke)
	m.metrics.Add(MetricTokenRevoked, n)
	if err != nil {
		return n, m.revokeError(ctx, "revoke_subject", err)
	}

	m.metricInc(MetricSubjectRevoked)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSubjectRevoked,
		success:   true,
		subject:   subject,
		metadata:  map[string]string{"revoked": strconv.Itoa(n)},
	})
	return n, nil
}

// IsRevoked reports whether tokenID is in the revocation registry.
func (m *Manager) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !m.ready() {
		return false, ErrManagerNotReady
	}
	revoked, err := m.registry.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, m.revokeError(ctx, "is_revoked", err)
	}
	return revoked, nil
}

func (m *Manager) revokeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, revocation.ErrEmptyTokenID) || errors.Is(err, revocation.ErrInvalidTTL) {
		return err
	}
	m.registryFailure(ctx, op, err)
	return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
}
