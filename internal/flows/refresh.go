package flows

import (
	"context"

	"github.com/MrEthical07/tokenguard/internal/anomaly"
	"github.com/MrEthical07/tokenguard/token"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureRejected
	RefreshFailureRegistry
	RefreshFailureIssue
)

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	// Verify is set when Failure is RefreshFailureVerify.
	Verify VerifyFailureKind
	Reason anomaly.Reason
	// Claims is the presented refresh token's claim set, when it verified.
	Claims  token.ClaimSet
	Revoked int
	Pair    Pair
	Issue   IssueFailureKind
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	// Verify must require the refresh scope.
	Verify         func(context.Context, string) VerifyResult
	IsRevoked      func(context.Context, string) (bool, error)
	LockSession    func(sessionID string) (unlock func())
	Gate           func(anomaly.Binding, anomaly.Request) anomaly.Reason
	// GateFailed is called when a refresh that passed Gate fails afterwards.
	// Optional.
	GateFailed     func(anomaly.Binding)
	EnableRotation bool
	Revoke         func(context.Context, string) error
	RevokeSession  func(context.Context, string) (int, error)
	SessionScope   func(sessionID string) []string
	DefaultScope   []string
	Issue          func(context.Context, IssueInput) IssueResult
}

// RunRefresh verifies the refresh token, runs the security gate, rotates the
// session and issues a new pair bound to the request's device values.
//
// Refreshes of one session are serialized; the revocation check is repeated
// under the session lock so a token can be rotated at most once.
func RunRefresh(ctx context.Context, refreshToken string, req anomaly.Request, deps RefreshDeps) RefreshResult {
	vr := deps.Verify(ctx, refreshToken)
	if vr.Failure != VerifyFailureNone {
		if vr.Failure == VerifyFailureRegistry {
			return RefreshResult{Failure: RefreshFailureRegistry, Err: vr.Err, Claims: vr.Claims}
		}
		return RefreshResult{Failure: RefreshFailureVerify, Verify: vr.Failure, Err: vr.Err, Claims: vr.Claims}
	}
	claims := vr.Claims

	if deps.LockSession != nil {
		unlock := deps.LockSession(claims.SessionID)
		defer unlock()
	}

	revoked, err := deps.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, Claims: claims}
	}
	if revoked {
		return RefreshResult{Failure: RefreshFailureVerify, Verify: VerifyFailureRevoked, Claims: claims}
	}

	binding := anomaly.Binding{
		Subject:     claims.Subject,
		Fingerprint: claims.Fingerprint,
		DeviceID:    claims.DeviceID,
		TokenID:     claims.TokenID,
	}
	reason := deps.Gate(binding, req)
	if reason != anomaly.ReasonNone {
		return RefreshResult{Failure: RefreshFailureRejected, Reason: reason, Claims: claims}
	}
	failed := func() {
		if deps.GateFailed != nil {
			deps.GateFailed(binding)
		}
	}

	res := RefreshResult{Claims: claims}
	if deps.EnableRotation {
		if err := deps.Revoke(ctx, claims.TokenID); err != nil {
			failed()
			return RefreshResult{Failure: RefreshFailureRegistry, Err: err, Claims: claims}
		}
		n, err := deps.RevokeSession(ctx, claims.SessionID)
		if err != nil {
			failed()
			return RefreshResult{Failure: RefreshFailureRegistry, Err: err, Claims: claims}
		}
		res.Revoked = n
	}

	scope := token.WithoutScope(claims.Scope, token.ScopeRefresh)
	if len(scope) == 0 && deps.SessionScope != nil {
		scope = deps.SessionScope(claims.SessionID)
	}
	if len(scope) == 0 {
		scope = deps.DefaultScope
	}

	ir := deps.Issue(ctx, IssueInput{
		Subject:     claims.Subject,
		SessionID:   claims.SessionID,
		Fingerprint: req.Fingerprint,
		DeviceID:    req.DeviceID,
		Scope:       scope,
	})
	if ir.Failure != IssueFailureNone {
		failed()
		res.Failure = RefreshFailureIssue
		res.Issue = ir.Failure
		res.Err = ir.Err
		return res
	}

	res.Pair = ir.Pair
	return res
}
