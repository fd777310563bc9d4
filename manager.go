package tokenguard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/internal/anomaly"
	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/MrEthical07/tokenguard/internal/stores"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/MrEthical07/tokenguard/token"
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

const sessionLockStripes = 64

// Manager issues, verifies, rotates and revokes session tokens. It owns the
// active token index, the revocation registry and the refresh security gate.
//
// A Manager is safe for concurrent use. Call Close to stop the background
// sweeper and flush audit events.
type Manager struct {
	config   Config
	codec    *token.Codec
	registry revocation.Registry
	backend  string
	index    *stores.ActiveIndex
	detector *anomaly.Detector
	random   RandomSource
	now      func() time.Time
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	log      *logrus.Entry
	flows    flows.Deps

	sessionLocks [sessionLockStripes]sync.Mutex

	stop      chan struct{}
	sweepWG   sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// Close stops the sweeper and drains the audit dispatcher. The manager
// rejects further calls with ErrManagerNotReady.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.stop)
		m.sweepWG.Wait()
		m.closeAudit()
		m.log.Info("token manager closed")
	})
}

func (m *Manager) closeAudit() {
	if m.audit == nil {
		return
	}
	ctx := context.Background()
	if d := m.config.Audit.DrainTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := m.audit.CloseContext(ctx); err != nil {
		m.log.WithError(err).WithField("dropped", m.audit.Dropped()).Warn("audit drain cut short")
	}
}

func (m *Manager) ready() bool {
	return m != nil && !m.closed.Load()
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() Config {
	return cloneConfig(m.config)
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// AuditDroppedByType returns the dropped audit events keyed by event type.
func (m *Manager) AuditDroppedByType() map[string]uint64 {
	if m == nil || m.audit == nil {
		return map[string]uint64{}
	}
	return m.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// lockSession serializes refreshes of one session. Sessions hashing to the
// same stripe share a lock.
func (m *Manager) lockSession(sessionID string) func() {
	mu := &m.sessionLocks[xxhash.Sum64String(sessionID)%sessionLockStripes]
	mu.Lock()
	return mu.Unlock
}

func (m *Manager) buildFlowDeps() flows.Deps {
	cfg := m.config
	deps := flows.Deps{}

	deps.Issue = flows.IssueDeps{
		Now: m.now,
		NewTokenID: func() (string, error) {
			return internal.NewTokenID(m.random)
		},
		Encode:       m.codec.Encode,
		Index:        m.index.Put,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
		Issuer:       cfg.Issuer,
		Audience:     cfg.Audience,
		DefaultScope: cfg.DefaultScope,
	}

	deps.Verify = flows.VerifyDeps{
		Decode:    m.codec.DecodeAndVerify,
		IsRevoked: m.registry.IsRevoked,
		Now:       m.now,
		Audience:  cfg.Audience,
		Issuer:    cfg.Issuer,
		Touch: func(tokenID string, at time.Time) {
			m.index.Touch(tokenID, at)
		},
	}

	deps.Revoke = flows.RevokeDeps{
		Revoke:    m.registry.Revoke,
		TTL:       cfg.RefreshTTL,
		BySession: m.index.BySession,
		BySubject: m.index.BySubject,
	}

	verifyDeps := deps.Verify
	issueDeps := deps.Issue
	revokeDeps := deps.Revoke
	refreshScope := []string{token.ScopeRefresh}

	deps.Refresh = flows.RefreshDeps{
		Verify: func(ctx context.Context, tok string) flows.VerifyResult {
			return flows.RunVerify(ctx, tok, refreshScope, verifyDeps)
		},
		IsRevoked:   m.registry.IsRevoked,
		LockSession: m.lockSession,
		Gate: func(b anomaly.Binding, r anomaly.Request) anomaly.Reason {
			return m.detector.Evaluate(b, r, m.now())
		},
		GateFailed: func(b anomaly.Binding) {
			m.detector.MarkFailed(b.Subject, b.TokenID)
		},
		EnableRotation: cfg.EnableRotation,
		Revoke: func(ctx context.Context, tokenID string) error {
			return flows.RunRevoke(ctx, tokenID, revokeDeps)
		},
		RevokeSession: func(ctx context.Context, sessionID string) (int, error) {
			return flows.RunRevokeSession(ctx, sessionID, revokeDeps)
		},
		SessionScope: m.index.SessionAccessScope,
		DefaultScope: cfg.DefaultScope,
		Issue: func(ctx context.Context, in flows.IssueInput) flows.IssueResult {
			return flows.RunIssue(ctx, in, issueDeps)
		},
	}

	return deps
}

func (m *Manager) startSweeper(interval time.Duration) {
	m.sweepWG.Add(1)
	go func() {
		defer m.sweepWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				m.sweep(ctx)
				cancel()
			}
		}
	}()
}

func pairFromFlow(p flows.Pair) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		ExpiresAt:        p.Access.ExpiresAtTime(),
		TokenID:          p.Access.TokenID,
		RefreshTokenID:   p.Refresh.TokenID,
		RefreshExpiresAt: p.Refresh.ExpiresAtTime(),
	}
}
