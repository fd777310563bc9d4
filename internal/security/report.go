package security

import (
	"fmt"
	"time"
)

// SnapshotInput is the raw material of a security snapshot.
type SnapshotInput struct {
	ActiveTokens          int
	ExpiredTokens         int
	RevokedTokens         int
	TotalRefreshAttempts  int
	FailedRefreshAttempts int
	FailedRefreshLast24h  int
	Incidents             int
	IncidentsLast24h      int
	GeneratedAt           time.Time
}

// Snapshot is the aggregated security view.
type Snapshot struct {
	ActiveTokens           int
	ExpiredTokens          int
	RevokedTokens          int
	TotalRefreshAttempts   int
	FailedRefreshAttempts  int
	RefreshSuccessRate     string
	SuspiciousIncidents    int
	SuspiciousIncidents24h int
	SecurityScore          int
	GeneratedAt            time.Time
}

const (
	incidentPenalty    = 5
	incidentPenaltyCap = 30
	failurePenalty     = 2
	failurePenaltyCap  = 20
)

// BuildSnapshot derives the success rate and score from in.
func BuildSnapshot(in SnapshotInput) Snapshot {
	return Snapshot{
		ActiveTokens:           in.ActiveTokens,
		ExpiredTokens:          in.ExpiredTokens,
		RevokedTokens:          in.RevokedTokens,
		TotalRefreshAttempts:   in.TotalRefreshAttempts,
		FailedRefreshAttempts:  in.FailedRefreshAttempts,
		RefreshSuccessRate:     SuccessRate(in.TotalRefreshAttempts, in.FailedRefreshAttempts),
		SuspiciousIncidents:    in.Incidents,
		SuspiciousIncidents24h: in.IncidentsLast24h,
		SecurityScore:          Score(in.IncidentsLast24h, in.FailedRefreshLast24h),
		GeneratedAt:            in.GeneratedAt,
	}
}

// SuccessRate formats the share of successful attempts as a percentage with
// two decimals. No attempts reads as "100.00".
func SuccessRate(total, failed int) string {
	if total <= 0 {
		return "100.00"
	}
	ok := total - failed
	if ok < 0 {
		ok = 0
	}
	return fmt.Sprintf("%.2f", float64(ok)*100/float64(total))
}

// Score starts at 100 and subtracts capped penalties for recent incidents and
// failed refreshes. It never drops below 0.
func Score(incidents24h, failed24h int) int {
	score := 100 -
		min(incidentPenaltyCap, incidentPenalty*max(0, incidents24h)) -
		min(failurePenaltyCap, failurePenalty*max(0, failed24h))
	return max(0, score)
}

// Posture describes how a manager is configured.
type Posture struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Issuer                 string
	Audience               string
	RefreshRotationEnabled bool
	MaxRefreshAttempts     int
	AnomalyWindow          time.Duration
	RevocationBackend      string
	SharedRevocation       bool
	CleanupInterval        time.Duration
	AuditEnabled           bool
	MetricsEnabled         bool
}

// PostureInput is the configuration slice a Posture is built from.
type PostureInput struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Issuer             string
	Audience           string
	EnableRotation     bool
	MaxRefreshAttempts int
	AnomalyWindow      time.Duration
	RevocationBackend  string
	CleanupInterval    time.Duration
	AuditEnabled       bool
	MetricsEnabled     bool
}

// BuildPosture converts in to a Posture.
func BuildPosture(in PostureInput) Posture {
	return Posture{
		SigningAlgorithm:       in.SigningAlgorithm,
		AccessTTL:              in.AccessTTL,
		RefreshTTL:             in.RefreshTTL,
		Issuer:                 in.Issuer,
		Audience:               in.Audience,
		RefreshRotationEnabled: in.EnableRotation,
		MaxRefreshAttempts:     in.MaxRefreshAttempts,
		AnomalyWindow:          in.AnomalyWindow,
		RevocationBackend:      in.RevocationBackend,
		SharedRevocation:       in.RevocationBackend == "redis",
		CleanupInterval:        in.CleanupInterval,
		AuditEnabled:           in.AuditEnabled,
		MetricsEnabled:         in.MetricsEnabled,
	}
}
