// Package anomaly implements the refresh security gate.
//
// A [Detector] keeps, per subject, a bounded log of refresh attempts and a
// suspicious-activity record. [Detector.Evaluate] runs the gate rules in a
// fixed order and records the outcome under one lock, so the attempt that
// trips a threshold is always counted.
//
// Rule order (first failing rule wins):
//
//  1. fingerprint mismatch
//  2. device id mismatch
//  3. too many attempts in the trailing window
//  4. automated cadence (low mean and low variance of inter-arrival times)
//  5. rapid IP change against the suspicious-activity record
//
// # What this package must NOT do
//
//   - Decode or verify tokens.
//   - Surface a [Reason] to end clients; reasons are for logs and audit only.
package anomaly
