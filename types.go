package tokenguard

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/anomaly"
	"github.com/MrEthical07/tokenguard/token"
)

// ClaimSet is the signed token payload.
type ClaimSet = token.ClaimSet

// RandomSource supplies token id entropy. Reads must fill the buffer or fail.
type RandomSource = io.Reader

// IssueRequest binds a new token pair to a subject, session and device.
// An empty Scope falls back to Config.DefaultScope.
type IssueRequest struct {
	Subject     string
	SessionID   string
	Fingerprint string
	DeviceID    string
	Scope       []string
}

// TokenPair is returned by Issue and Refresh. ExpiresAt and TokenID describe
// the access token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	TokenID          string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// RequestContext is what the caller observed about the client presenting a
// refresh token.
type RequestContext struct {
	IP          string
	UserAgent   string
	Fingerprint string
	DeviceID    string
}

// RejectReason names why the security gate refused a refresh. It is never
// part of the error returned to the caller.
type RejectReason = anomaly.Reason

const (
	ReasonFingerprintMismatch = anomaly.ReasonFingerprintMismatch
	ReasonDeviceIDMismatch    = anomaly.ReasonDeviceIDMismatch
	ReasonTooManyAttempts     = anomaly.ReasonTooManyAttempts
	ReasonAutomatedPattern    = anomaly.ReasonAutomatedPattern
	ReasonRapidIPChange       = anomaly.ReasonRapidIPChange
)

// RefreshResult is the detailed outcome of RefreshWithResult.
type RefreshResult struct {
	Pair *TokenPair
	// Err is nil on success and matches the error Refresh would return.
	Err error
	// Reason is set when the security gate refused the refresh.
	Reason RejectReason
	// Cause carries the underlying verification failure, if any.
	Cause error
	// Revoked is the number of token ids revoked by rotation.
	Revoked int
}

// RefreshAttempt is one recorded refresh call of a subject.
type RefreshAttempt struct {
	Timestamp time.Time
	IP        string
	UserAgent string
	Success   bool
	TokenID   string
}

// SuspiciousIncident is one refused refresh.
type SuspiciousIncident struct {
	Timestamp time.Time
	Reason    RejectReason
	IP        string
	UserAgent string
}

// SuspiciousActivity is the incident record of a subject.
type SuspiciousActivity struct {
	Incidents    []SuspiciousIncident
	LastKnownIP  string
	LastActivity time.Time
}

// SecuritySnapshot is the aggregated view returned by Report.
type SecuritySnapshot struct {
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

// SecurityReport is a read-only view of how the manager is configured.
type SecurityReport struct {
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

// SweepResult reports what one cleanup pass removed.
type SweepResult struct {
	ExpiredTokens       int
	RevocationEntries   int
	RefreshAttempts     int
	AttemptSubjects     int
	SuspiciousIncidents int
	SuspiciousRecords   int
}

// AuditEvent is a structured audit record emitted by the manager.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
