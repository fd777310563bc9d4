// Package internal contains helpers private to tokenguard: token id
// generation and device binding comparison.
//
// # Sub-packages
//
//   - anomaly: refresh security gate, attempt log and suspicious activity records
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: verify and refresh orchestration over injected dependencies
//   - security: snapshot aggregation and security score
//   - stores: active token index
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenguard API.
//   - Be imported by any package outside the tokenguard module.
package internal
