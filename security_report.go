package tokenguard

import "github.com/MrEthical07/tokenguard/internal/security"

// SecurityReport describes how m is configured. It reads configuration only
// and never touches the registry.
func (m *Manager) SecurityReport() SecurityReport {
	if m == nil {
		return SecurityReport{}
	}

	p := security.BuildPosture(security.PostureInput{
		SigningAlgorithm:   string(m.codec.Algorithm()),
		AccessTTL:          m.config.AccessTTL,
		RefreshTTL:         m.config.RefreshTTL,
		Issuer:             m.config.Issuer,
		Audience:           m.config.Audience,
		EnableRotation:     m.config.EnableRotation,
		MaxRefreshAttempts: m.config.MaxRefreshAttempts,
		AnomalyWindow:      m.detector.Thresholds().Window,
		RevocationBackend:  m.backend,
		CleanupInterval:    m.config.Cleanup.Interval,
		AuditEnabled:       m.audit != nil,
		MetricsEnabled:     m.metrics.Enabled(),
	})

	return SecurityReport{
		SigningAlgorithm:       p.SigningAlgorithm,
		AccessTTL:              p.AccessTTL,
		RefreshTTL:             p.RefreshTTL,
		Issuer:                 p.Issuer,
		Audience:               p.Audience,
		RefreshRotationEnabled: p.RefreshRotationEnabled,
		MaxRefreshAttempts:     p.MaxRefreshAttempts,
		AnomalyWindow:          p.AnomalyWindow,
		RevocationBackend:      p.RevocationBackend,
		SharedRevocation:       p.SharedRevocation,
		CleanupInterval:        p.CleanupInterval,
		AuditEnabled:           p.AuditEnabled,
		MetricsEnabled:         p.MetricsEnabled,
	}
}
