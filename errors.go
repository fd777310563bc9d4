package tokenguard

import (
	"errors"

	"github.com/MrEthical07/tokenguard/token"
)

var (
	// ErrMalformedToken is returned for tokens that are not three segments or
	// whose authenticated content cannot be decoded.
	ErrMalformedToken = token.ErrMalformed
	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = token.ErrInvalidSignature
	// ErrTokenExpired is returned after expiresAt.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for ids present in the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidAudience is returned when audience or issuer do not match.
	ErrInvalidAudience = errors.New("invalid token audience")
	// ErrInsufficientScope is returned when a required scope is missing.
	ErrInsufficientScope = errors.New("insufficient token scope")
	// ErrRefreshDenied is returned for every refused refresh. The reason is
	// available through RefreshWithResult and audit events only.
	ErrRefreshDenied = errors.New("refresh denied")
	// ErrIssuanceFailed is returned when a token pair cannot be produced.
	ErrIssuanceFailed = errors.New("token issuance failed")
	// ErrSignerUnavailable is returned when the signer fails during
	// verification.
	ErrSignerUnavailable = errors.New("token signer unavailable")
	// ErrRevocationUnavailable is returned when the revocation registry cannot
	// answer. Verification fails closed.
	ErrRevocationUnavailable = errors.New("revocation registry unavailable")
	// ErrManagerNotReady is returned by a nil or closed Manager.
	ErrManagerNotReady = errors.New("token manager not ready")
)
