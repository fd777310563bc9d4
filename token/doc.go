// Package token encodes and verifies the signed, transport-safe session tokens
// issued by tokenguard.
//
// # Token format
//
//	base64url(header_json) "." base64url(claims_json) "." base64url(signature)
//
// The header is {"alg": <algorithm>, "typ": "JWT"}; segments are unpadded
// base64url. The signature covers the first two raw segments and is produced
// by an injected [Signer].
//
// # Verification order
//
// [Codec.DecodeAndVerify] checks the segment count, then the signature over the
// raw segments, and only then decodes the header and claims. Nothing inside the
// token is trusted before the signature check.
//
// # What this package must NOT do
//
//   - Consult revocation state, clocks, audience, or scopes (the Manager does).
//   - Embed signing secrets.
//   - Import tokenguard or any internal package.
package token
