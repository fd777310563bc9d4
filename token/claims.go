package token

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeRefresh is the only scope carried by refresh tokens.
const ScopeRefresh = "refresh"

// ClaimSet is the signed token payload. All timestamps are milliseconds since
// the Unix epoch.
//
// LastActivity is written once at issuance and never re-signed; the live value
// is tracked out of band by the manager's token index.
type ClaimSet struct {
	Subject      string   `json:"subject"`
	IssuedAt     int64    `json:"issuedAt"`
	ExpiresAt    int64    `json:"expiresAt"`
	TokenID      string   `json:"tokenId"`
	Audience     string   `json:"audience"`
	Issuer       string   `json:"issuer"`
	Scope        []string `json:"scope"`
	SessionID    string   `json:"sessionId"`
	Fingerprint  string   `json:"fingerprint"`
	DeviceID     string   `json:"deviceId"`
	LastActivity int64    `json:"lastActivity"`
}

// Clone returns a deep copy of c.
func (c ClaimSet) Clone() ClaimSet {
	out := c
	if c.Scope != nil {
		out.Scope = slices.Clone(c.Scope)
	}
	return out
}

// HasScope reports whether c carries scope s.
func (c ClaimSet) HasScope(s string) bool {
	return slices.Contains(c.Scope, s)
}

// HasAllScopes reports whether every entry of required is present in c.
// An empty requirement is always satisfied.
func (c ClaimSet) HasAllScopes(required []string) bool {
	for _, s := range required {
		if !c.HasScope(s) {
			return false
		}
	}
	return true
}

// IsRefresh reports whether c is a refresh token claim set.
func (c ClaimSet) IsRefresh() bool {
	return c.HasScope(ScopeRefresh)
}

// Expired reports whether c is expired at now. A token is still valid at
// exactly ExpiresAt.
func (c ClaimSet) Expired(now time.Time) bool {
	return now.UnixMilli() > c.ExpiresAt
}

// ExpiresAtTime returns ExpiresAt as a time.Time.
func (c ClaimSet) ExpiresAtTime() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}

// IssuedAtTime returns IssuedAt as a time.Time.
func (c ClaimSet) IssuedAtTime() time.Time {
	return time.UnixMilli(c.IssuedAt)
}

// WithoutScope returns scopes with every occurrence of drop removed and
// duplicates collapsed, preserving order.
func WithoutScope(scopes []string, drop string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s == "" || s == drop || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// The jwt.Claims methods below let a ClaimSet travel through golang-jwt
// tooling. They never fail; temporal validation is done by the manager.

func (c ClaimSet) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(c.ExpiresAtTime()), nil
}

func (c ClaimSet) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(c.IssuedAtTime()), nil
}

func (c ClaimSet) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c ClaimSet) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c ClaimSet) GetSubject() (string, error) {
	return c.Subject, nil
}

func (c ClaimSet) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}
