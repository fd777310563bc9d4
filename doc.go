// Package tokenguard issues, verifies, rotates and revokes signed session
// tokens, and gates refreshes with an anomaly detector.
//
// A [Manager] is built once with [New] and [Builder.Build] and is safe to call
// from many goroutines. It owns the active token index, the revocation registry
// (in memory, or shared through Redis), the refresh attempt log and the
// suspicious activity records. [Manager.Close] stops its background work.
//
// # Token format
//
// Tokens are compact JWS strings: base64url(header).base64url(claims).base64url(sig),
// with the claim names of [token.ClaimSet]. The signer is always injected.
//
// # Error model
//
// Verification failures are sentinel errors ([ErrMalformedToken],
// [ErrInvalidSignature], [ErrTokenRevoked], [ErrTokenExpired],
// [ErrInvalidAudience], [ErrInsufficientScope]) matched with errors.Is. A
// refused refresh is always [ErrRefreshDenied]; the detector reason stays
// server side.
//
// # What this package must NOT do
//
//   - Embed signing secrets.
//   - Log or audit encoded token strings.
//   - Treat a registry error as "not revoked".
package tokenguard
