// Package middleware adapts a tokenguard.Manager to net/http.
//
// [Guard] verifies bearer access tokens and stores the claims in the request
// context. [RefreshHandler] serves the refresh exchange, reading device
// values from the X-Device-Fingerprint and X-Device-ID headers.
//
// Responses never include the reason a token or refresh was refused.
package middleware
