// Package audit implements async event dispatching for token lifecycle and
// security gate events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full delivery.
//   - [Event]: structured record with id, timestamp, subject, session, token id and IP.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import tokenguard or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
