// Package engine implements invite attribution.
//
// The platform never says which invite a new member used. It only exposes a
// cumulative use counter per code. The engine keeps a baseline of those
// counters and, when a member joins, diffs a fresh fetch against it.
//
// COMPONENTS:
//
//   - Snapshot: fetch live invites and upsert every code into the baseline.
//   - Attribute: diff live counters against the stored baseline, pick the
//     code with the largest positive delta, then refresh the baseline.
//   - AttributeWithRetry: one Attribute call, and if it found nothing, one
//     more after a fixed delay to absorb counter propagation lag.
//
// ORDERING:
//
// Attribute reads the baseline before it writes the refresh, so the diff is
// always against the pre-join state. The refresh covers every live code, not
// just the selected one.
//
// CONCURRENCY:
//
// An Engine holds no mutable state and is safe for concurrent use. Two joins
// racing on the same community can both observe the same delta and both
// claim it. This is a known limitation: the platform counter cannot tell
// concurrent users of one code apart. A claim-and-decrement transaction per
// unit of delta would close it.
//
// ERRORS:
//
// "No delta" is a nil *invite.Attribution with a nil error. Failures are
// *AttributionError values whose Code separates permission problems from
// transient fetch failures and storage failures.
package engine
