package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenguard/token"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureInvalidRequest
	IssueFailureTokenID
	IssueFailureEncode
)

// IssueInput is what a new pair is bound to.
type IssueInput struct {
	Subject     string
	SessionID   string
	Fingerprint string
	DeviceID    string
	Scope       []string
}

// Pair is a freshly signed access and refresh token with their claim sets.
type Pair struct {
	AccessToken  string
	RefreshToken string
	Access       token.ClaimSet
	Refresh      token.ClaimSet
}

// IssueResult carries the pair or the failure classification.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	Pair    Pair
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	Now          func() time.Time
	NewTokenID   func() (string, error)
	Encode       func(token.ClaimSet) (string, error)
	Index        func(token.ClaimSet)
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Issuer       string
	Audience     string
	DefaultScope []string
}

// RunIssue signs an access and a refresh token for in. Both claim sets are
// indexed only after both tokens are signed.
func RunIssue(_ context.Context, in IssueInput, deps IssueDeps) IssueResult {
	if in.Subject == "" || in.SessionID == "" {
		return IssueResult{
			Failure: IssueFailureInvalidRequest,
			Err:     errors.New("subject and session id are required"),
		}
	}

	scope := token.WithoutScope(in.Scope, token.ScopeRefresh)
	if len(scope) == 0 {
		scope = token.WithoutScope(deps.DefaultScope, token.ScopeRefresh)
	}

	accessID, err := deps.NewTokenID()
	if err != nil {
		return IssueResult{Failure: IssueFailureTokenID, Err: err}
	}
	refreshID, err := deps.NewTokenID()
	if err != nil {
		return IssueResult{Failure: IssueFailureTokenID, Err: err}
	}

	now := deps.Now()
	issuedAt := now.UnixMilli()

	access := token.ClaimSet{
		Subject:      in.Subject,
		IssuedAt:     issuedAt,
		ExpiresAt:    now.Add(deps.AccessTTL).UnixMilli(),
		TokenID:      accessID,
		Audience:     deps.Audience,
		Issuer:       deps.Issuer,
		Scope:        scope,
		SessionID:    in.SessionID,
		Fingerprint:  in.Fingerprint,
		DeviceID:     in.DeviceID,
		LastActivity: issuedAt,
	}
	refresh := access
	refresh.TokenID = refreshID
	refresh.ExpiresAt = now.Add(deps.RefreshTTL).UnixMilli()
	refresh.Scope = []string{token.ScopeRefresh}

	accessToken, err := deps.Encode(access)
	if err != nil {
		return IssueResult{Failure: IssueFailureEncode, Err: err}
	}
	refreshToken, err := deps.Encode(refresh)
	if err != nil {
		return IssueResult{Failure: IssueFailureEncode, Err: err}
	}

	if deps.Index != nil {
		deps.Index(access)
		deps.Index(refresh)
	}

	return IssueResult{
		Pair: Pair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			Access:       access,
			Refresh:      refresh,
		},
	}
}
