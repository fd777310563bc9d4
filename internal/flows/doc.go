// Package flows contains the orchestration behind every Manager operation.
//
// Each flow function (RunIssue, RunVerify, RunRefresh, RunRevokeSession, ...)
// accepts a typed dependency struct of funcs and returns a result carrying a
// failure kind. The root package maps failure kinds to public errors, metrics
// and audit events, so flows stay testable with plain fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the codec, revocation registry, token index and
// anomaly detector. They do NOT own any of these resources; ownership stays
// with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenguard (to avoid import cycles).
//   - Log or return encoded token strings in errors.
package flows
