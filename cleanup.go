package tokenguard

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Sweep runs one cleanup pass: expired index entries, expired registry
// entries, refresh attempts older than the attempt retention and incidents
// older than the incident retention. Subjects left empty are removed.
//
// The background sweeper calls the same pass every Cleanup.Interval.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	if !m.ready() {
		return SweepResult{}, ErrManagerNotReady
	}
	return m.sweep(ctx)
}

func (m *Manager) sweep(ctx context.Context) (SweepResult, error) {
	now := m.now()

	var res SweepResult
	res.ExpiredTokens = m.index.SweepExpired(now)

	ds := m.detector.Sweep(now)
	res.RefreshAttempts = ds.Attempts
	res.AttemptSubjects = ds.Subjects
	res.SuspiciousIncidents = ds.Incidents
	res.SuspiciousRecords = ds.Records

	n, err := m.registry.Sweep(ctx)
	res.RevocationEntries = n
	if err != nil {
		return res, m.revokeError(ctx, "sweep", err)
	}

	m.metricInc(MetricSweep)
	m.log.WithFields(logrus.Fields{
		"expired_tokens":     res.ExpiredTokens,
		"revocation_entries": res.RevocationEntries,
		"refresh_attempts":   res.RefreshAttempts,
		"incidents":          res.SuspiciousIncidents,
	}).Debug("cleanup pass completed")
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventCleanupCompleted,
		success:   true,
		metadata: map[string]string{
			"expired_tokens":     strconv.Itoa(res.ExpiredTokens),
			"revocation_entries": strconv.Itoa(res.RevocationEntries),
			"refresh_attempts":   strconv.Itoa(res.RefreshAttempts),
			"incidents":          strconv.Itoa(res.SuspiciousIncidents),
		},
	})
	return res, nil
}
