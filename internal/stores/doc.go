// Package stores holds the in-process active token index.
//
// # Design
//
// [ActiveIndex] maps token ids to the claim sets they were issued with, with
// secondary sets keyed by session id and subject for cascade revocation. All
// reads return copies. The index is bookkeeping: it records the live
// last-activity time that signed tokens cannot carry, and it is never consulted
// to decide whether a token is authentic.
//
// # What this package must NOT do
//
//   - Import tokenguard or any sibling internal package.
//   - Store encoded token strings.
package stores
