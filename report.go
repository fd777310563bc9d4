package tokenguard

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenguard/internal/security"
)

// Report aggregates the index, the registry and the refresh logs into a
// SecuritySnapshot.
//
// An indexed token counts as active when it is neither expired nor revoked,
// and as expired when it is past expiry but not revoked. RevokedTokens is the
// number of live registry entries.
func (m *Manager) Report(ctx context.Context) (SecuritySnapshot, error) {
	if !m.ready() {
		return SecuritySnapshot{}, ErrManagerNotReady
	}

	now := m.now()
	in := security.SnapshotInput{GeneratedAt: now}

	for _, entry := range m.index.Snapshot() {
		revoked, err := m.registry.IsRevoked(ctx, entry.Claims.TokenID)
		if err != nil {
			return SecuritySnapshot{}, m.revokeError(ctx, "report", err)
		}
		switch {
		case revoked:
		case entry.Claims.Expired(now):
			in.ExpiredTokens++
		default:
			in.ActiveTokens++
		}
	}

	revoked, err := m.registry.Count(ctx)
	if err != nil {
		return SecuritySnapshot{}, m.revokeError(ctx, "report", err)
	}
	in.RevokedTokens = revoked

	stats := m.detector.Stats(now)
	in.TotalRefreshAttempts = stats.TotalAttempts
	in.FailedRefreshAttempts = stats.FailedAttempts
	in.FailedRefreshLast24h = stats.FailedLast24h
	in.Incidents = stats.Incidents
	in.IncidentsLast24h = stats.IncidentsLast24h

	s := security.BuildSnapshot(in)
	return SecuritySnapshot{
		ActiveTokens:           s.ActiveTokens,
		ExpiredTokens:          s.ExpiredTokens,
		RevokedTokens:          s.RevokedTokens,
		TotalRefreshAttempts:   s.TotalRefreshAttempts,
		FailedRefreshAttempts:  s.FailedRefreshAttempts,
		RefreshSuccessRate:     s.RefreshSuccessRate,
		SuspiciousIncidents:    s.SuspiciousIncidents,
		SuspiciousIncidents24h: s.SuspiciousIncidents24h,
		SecurityScore:          s.SecurityScore,
		GeneratedAt:            s.GeneratedAt,
	}, nil
}

// SuspiciousActivity returns a copy of subject's incident record.
func (m *Manager) SuspiciousActivity(subject string) (SuspiciousActivity, bool) {
	if !m.ready() {
		return SuspiciousActivity{}, false
	}
	rec, ok := m.detector.Suspicious(subject)
	if !ok {
		return SuspiciousActivity{}, false
	}

	out := SuspiciousActivity{
		Incidents:    make([]SuspiciousIncident, 0, len(rec.Incidents)),
		LastKnownIP:  rec.LastKnownIP,
		LastActivity: rec.LastActivity,
	}
	for _, inc := range rec.Incidents {
		out.Incidents = append(out.Incidents, SuspiciousIncident{
			Timestamp: inc.Timestamp,
			Reason:    inc.Reason,
			IP:        inc.IP,
			UserAgent: inc.UserAgent,
		})
	}
	return out, true
}

// RefreshAttempts returns a copy of subject's refresh log, oldest first.
func (m *Manager) RefreshAttempts(subject string) []RefreshAttempt {
	if !m.ready() {
		return nil
	}
	log := m.detector.Attempts(subject)
	out := make([]RefreshAttempt, 0, len(log))
	for _, a := range log {
		out = append(out, RefreshAttempt{
			Timestamp: a.Timestamp,
			IP:        a.IP,
			UserAgent: a.UserAgent,
			Success:   a.Success,
			TokenID:   a.TokenID,
		})
	}
	return out
}

// LastActivity returns the last successful verification time of tokenID,
// or its issuance time if it was never verified. The signed lastActivity
// claim is never updated; this is the live value.
func (m *Manager) LastActivity(tokenID string) (time.Time, bool) {
	if !m.ready() {
		return time.Time{}, false
	}
	entry, ok := m.index.Get(tokenID)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(entry.LastActivity), true
}
