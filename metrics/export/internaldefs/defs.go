package internaldefs

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/MrEthical07/tokenguard"
)

// CounterDef binds a counter to its exported name.
type CounterDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram to its exported name.
type HistogramDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: tokenguard.MetricIssueSuccess, Name: "tokenguard_issue_success_total", Help: "Issued token pairs."},
	{ID: tokenguard.MetricIssueFailure, Name: "tokenguard_issue_failure_total", Help: "Failed issue operations."},
	{ID: tokenguard.MetricVerifySuccess, Name: "tokenguard_verify_success_total", Help: "Tokens that passed verification."},
	{ID: tokenguard.MetricVerifyFailure, Name: "tokenguard_verify_failure_total", Help: "Tokens that failed verification."},
	{ID: tokenguard.MetricVerifyExpired, Name: "tokenguard_verify_expired_total", Help: "Verifications rejected as expired."},
	{ID: tokenguard.MetricVerifyRevoked, Name: "tokenguard_verify_revoked_total", Help: "Verifications rejected as revoked."},
	{ID: tokenguard.MetricVerifyScopeDenied, Name: "tokenguard_verify_scope_denied_total", Help: "Verifications rejected for missing scope."},
	{ID: tokenguard.MetricRefreshSuccess, Name: "tokenguard_refresh_success_total", Help: "Successful refresh operations."},
	{ID: tokenguard.MetricRefreshFailure, Name: "tokenguard_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: tokenguard.MetricRefreshRejected, Name: "tokenguard_refresh_rejected_total", Help: "Refreshes refused by the security gate."},
	{ID: tokenguard.MetricDeviceMismatch, Name: "tokenguard_device_mismatch_total", Help: "Refreshes with a fingerprint or device id mismatch."},
	{ID: tokenguard.MetricRefreshThrottled, Name: "tokenguard_refresh_throttled_total", Help: "Refreshes over the attempt limit."},
	{ID: tokenguard.MetricAutomatedRefresh, Name: "tokenguard_automated_refresh_total", Help: "Refreshes with an automated cadence."},
	{ID: tokenguard.MetricRapidIPChange, Name: "tokenguard_rapid_ip_change_total", Help: "Refreshes from a new IP shortly after an incident."},
	{ID: tokenguard.MetricTokenRevoked, Name: "tokenguard_token_revoked_total", Help: "Single token revocations."},
	{ID: tokenguard.MetricSessionRevoked, Name: "tokenguard_session_revoked_total", Help: "Session revocations."},
	{ID: tokenguard.MetricSubjectRevoked, Name: "tokenguard_subject_revoked_total", Help: "Subject revocations."},
	{ID: tokenguard.MetricRegistryFailure, Name: "tokenguard_registry_failure_total", Help: "Revocation registry errors."},
	{ID: tokenguard.MetricSweep, Name: "tokenguard_sweep_total", Help: "Completed cleanup sweeps."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenguard.MetricVerifyLatency, Name: "tokenguard_verify_latency_seconds", Help: "Verify latency histogram."},
}

// GaugeDef binds a field of the security snapshot to its exported name.
type GaugeDef struct {
	Name  string
	Help  string
	Value func(tokenguard.SecuritySnapshot) float64
}

// GaugeDefs lists every security gauge in output order.
var GaugeDefs = []GaugeDef{
	{Name: "tokenguard_active_tokens", Help: "Indexed tokens that are neither expired nor revoked.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.ActiveTokens) }},
	{Name: "tokenguard_expired_tokens", Help: "Indexed tokens past expiry and not revoked.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.ExpiredTokens) }},
	{Name: "tokenguard_revoked_tokens", Help: "Live revocation registry entries.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.RevokedTokens) }},
	{Name: "tokenguard_refresh_attempts", Help: "Retained refresh attempts.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.TotalRefreshAttempts) }},
	{Name: "tokenguard_refresh_failed_attempts", Help: "Retained refresh attempts that failed.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.FailedRefreshAttempts) }},
	{Name: "tokenguard_refresh_success_ratio", Help: "Share of retained refresh attempts that succeeded, 0 to 1.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return SuccessRatio(s.RefreshSuccessRate) }},
	{Name: "tokenguard_suspicious_incidents", Help: "Retained security gate incidents.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.SuspiciousIncidents) }},
	{Name: "tokenguard_suspicious_incidents_24h", Help: "Security gate incidents in the last 24 hours.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.SuspiciousIncidents24h) }},
	{Name: "tokenguard_security_score", Help: "Security score from 0 to 100.",
		Value: func(s tokenguard.SecuritySnapshot) float64 { return float64(s.SecurityScore) }},
}

// SuccessRatio converts a two-decimal percentage such as "33.33" to 0.3333.
// An unparsable rate reads as 0.
func SuccessRatio(rate string) float64 {
	pct, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0
	}
	// whole hundredths keep the division exact to the last digit
	return math.Round(pct*100) / 10000
}

// AuditDroppedName is the counter fed by Manager.AuditDropped.
const AuditDroppedName = "tokenguard_audit_dropped_total"

// AuditDroppedByTypeName is the counter fed by Manager.AuditDroppedByType,
// labelled with EventTypeLabel.
const (
	AuditDroppedByTypeName = "tokenguard_audit_dropped_by_type_total"
	EventTypeLabel         = "event_type"
)

// SortedTypes returns the keys of drops in a stable order.
func SortedTypes(drops map[string]uint64) []string {
	return slices.Sorted(maps.Keys(drops))
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket in instrument names, which cannot
// carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
