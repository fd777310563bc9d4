package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenguard/token"
)

// VerifyFailureKind classifies verification failures for root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureMalformed
	VerifyFailureSignature
	VerifyFailureSigner
	VerifyFailureRevoked
	VerifyFailureRegistry
	VerifyFailureExpired
	VerifyFailureAudience
	VerifyFailureScope
)

// VerifyResult carries the verified claims or the failure classification.
// Claims are populated once the signature has been checked, even on later
// failures, so callers can attribute the rejection.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claims  token.ClaimSet
}

// VerifyDeps captures verification dependencies.
type VerifyDeps struct {
	Decode    func(string) (token.ClaimSet, error)
	IsRevoked func(context.Context, string) (bool, error)
	Now       func() time.Time
	Audience  string
	Issuer    string
	// Touch records activity for a verified token id. Optional.
	Touch func(tokenID string, at time.Time)
}

// RunVerify checks, in order: signature and shape, revocation, expiry,
// audience and issuer, then required scopes. The first failure wins.
func RunVerify(ctx context.Context, tokenStr string, required []string, deps VerifyDeps) VerifyResult {
	claims, err := deps.Decode(tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrMalformed):
			return VerifyResult{Failure: VerifyFailureMalformed, Err: err}
		case errors.Is(err, token.ErrInvalidSignature):
			return VerifyResult{Failure: VerifyFailureSignature, Err: err}
		default:
			return VerifyResult{Failure: VerifyFailureSigner, Err: err}
		}
	}

	revoked, err := deps.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return VerifyResult{Failure: VerifyFailureRegistry, Err: err, Claims: claims}
	}
	if revoked {
		return VerifyResult{Failure: VerifyFailureRevoked, Claims: claims}
	}

	now := deps.Now()
	if claims.Expired(now) {
		return VerifyResult{Failure: VerifyFailureExpired, Claims: claims}
	}

	if claims.Audience != deps.Audience || claims.Issuer != deps.Issuer {
		return VerifyResult{Failure: VerifyFailureAudience, Claims: claims}
	}

	if !claims.HasAllScopes(required) {
		return VerifyResult{Failure: VerifyFailureScope, Claims: claims}
	}

	if deps.Touch != nil {
		deps.Touch(claims.TokenID, now)
	}
	return VerifyResult{Claims: claims}
}
