// Package security aggregates security snapshots and configuration posture.
//
// [BuildSnapshot] turns raw counts into a snapshot with a refresh success rate
// and a 0 to 100 security score. [BuildPosture] summarizes the settings that
// matter for review.
//
// # What this package must NOT do
//
//   - Read manager state itself; callers collect the counts.
package security
