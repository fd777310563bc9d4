// Package revocation holds the set of token ids that must fail verification
// before their natural expiry.
//
// # Backends
//
// [Memory] keeps entries in-process under a read/write mutex and relies on
// [Registry.Sweep] to drop expired entries. [Redis] stores one key per token id
// with a native TTL, so entries are shared by every manager pointing at the same
// Redis deployment and expire on their own.
//
// # What this package must NOT do
//
//   - Decode or verify tokens.
//   - Decide when a token should be revoked; callers own that policy.
//   - Treat a backend error as "not revoked". Errors are returned so callers
//     can fail closed.
package revocation
