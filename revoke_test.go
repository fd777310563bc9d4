package tokenguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard/revocation"
)

func TestRevokeIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()
	pair := issueU1(t, m)

	for i := 0; i < 3; i++ {
		if err := m.Revoke(ctx, pair.TokenID); err != nil {
			t.Fatalf("Revoke #%d failed: %v", i+1, err)
		}
	}

	if _, err := m.Verify(ctx, pair.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	revoked, err := m.IsRevoked(ctx, pair.TokenID)
	if err != nil || !revoked {
		t.Fatalf("expected IsRevoked=true, got %v / %v", revoked, err)
	}

	snap, err := m.Report(ctx)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if snap.RevokedTokens != 1 {
		t.Fatalf("expected one registry entry, got %d", snap.RevokedTokens)
	}
}

func TestRevokeRejectsEmptyID(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Revoke(context.Background(), ""); !errors.Is(err, revocation.ErrEmptyTokenID) {
		t.Fatalf("expected ErrEmptyTokenID, got %v", err)
	}
}

func TestRevocationExpiresAfterRefreshTTL(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) {
		c.AccessTTL = time.Minute
		c.RefreshTTL = time.Hour
	})
	ctx := context.Background()
	pair := issueU1(t, m)

	if err := m.Revoke(ctx, pair.RefreshTokenID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	clock.Advance(time.Hour - time.Millisecond)
	if revoked, _ := m.IsRevoked(ctx, pair.RefreshTokenID); !revoked {
		t.Fatal("entry must live for RefreshTTL")
	}
	clock.Advance(time.Millisecond)
	if revoked, _ := m.IsRevoked(ctx, pair.RefreshTokenID); revoked {
		t.Fatal("entry must self-expire after RefreshTTL")
	}
}

func TestRevokeSessionCascade(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	first := issueU1(t, m)
	second := issueU1(t, m)
	other, err := m.Issue(ctx, IssueRequest{Subject: "u1", SessionID: "s2", Fingerprint: "fp-A", DeviceID: "d1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	n, err := m.RevokeSession(ctx, "s1")
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 revoked ids, got %d", n)
	}
	for _, tok := range []string{first.AccessToken, first.RefreshToken, second.AccessToken, second.RefreshToken} {
		if _, err := m.Verify(ctx, tok); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked, got %v", err)
		}
	}
	if _, err := m.Verify(ctx, other.AccessToken); err != nil {
		t.Fatalf("other session must survive, got %v", err)
	}

	n, err = m.RevokeSession(ctx, "unknown")
	if err != nil || n != 0 {
		t.Fatalf("unknown session: expected 0/nil, got %d/%v", n, err)
	}
}

func TestRevokeSubject(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	mine := issueU1(t, m)
	theirs, err := m.Issue(ctx, IssueRequest{Subject: "u2", SessionID: "s9"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	n, err := m.RevokeSubject(ctx, "u1")
	if err != nil {
		t.Fatalf("RevokeSubject failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked ids, got %d", n)
	}
	if _, err := m.Verify(ctx, mine.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := m.Verify(ctx, theirs.AccessToken); err != nil {
		t.Fatalf("other subject must survive, got %v", err)
	}
}

// brokenRegistry fails every call, standing in for an unreachable backend.
type brokenRegistry struct{}

var errBackendDown = errors.New("connection refused")

func (brokenRegistry) Revoke(context.Context, string, time.Duration) error { return errBackendDown }
func (brokenRegistry) IsRevoked(context.Context, string) (bool, error) { return false, errBackendDown }
func (brokenRegistry) Count(context.Context) (int, error) { return 0, errBackendDown }
func (brokenRegistry) Sweep(context.Context) (int, error) { return 0, errBackendDown }

func TestRegistryFailureFailsClosed(t *testing.T) {
	m, err := New().
		WithConfig(testConfig()).
		WithSigner(hashSigner{}).
		WithRevocationRegistry(brokenRegistry{}).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()
	ctx := context.Background()

	pair := issueU1(t, m)

	if _, err := m.Verify(ctx, pair.AccessToken); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("verify: expected ErrRevocationUnavailable, got %v", err)
	}
	_, err = m.Refresh(ctx, pair.RefreshToken, deviceA())
	if !errors.Is(err, ErrRefreshDenied) || !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("refresh: expected denial wrapping ErrRevocationUnavailable, got %v", err)
	}
	if err := m.Revoke(ctx, pair.TokenID); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("revoke: expected ErrRevocationUnavailable, got %v", err)
	}
	if _, err := m.Report(ctx); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("report: expected ErrRevocationUnavailable, got %v", err)
	}
	if got := m.SecurityReport().RevocationBackend; got != "custom" {
		t.Fatalf("expected custom backend, got %q", got)
	}
}
