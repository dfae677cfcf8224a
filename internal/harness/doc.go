// Package harness runs invite attribution scenarios end to end.
//
// A scenario seeds a baseline, scripts what the platform reports on each
// invite fetch, then replays member joins, snapshots and creator claims
// through the real engine, tracker and SQLite store. The resulting trace,
// join log and baseline are checked against assertions and, optionally, a
// golden file.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: single_join
//	description: "One use on one code credits its creator"
//	community: guild-1
//	baseline:
//	  - { code: abc, uses: 3, creator: u1 }
//	fetches:
//	  - invites:
//	      - { code: abc, uses: 4, creator: u1 }
//	  - error: permission
//	steps:
//	  - do: join
//	    member: m1
//	    expect: { code: abc, inviter: u1 }
//	assertions:
//	  - type: join_count
//	    count: 1
//	  - type: baseline
//	    code: abc
//	    uses: 4
//
// Fetches are consumed in order, one per platform call; the last one repeats
// once the list is exhausted. A scenario without fetches lists no invites.
//
// # Assertion Types
//
//   - join_count: exactly N join-log rows
//   - join_attributed: the latest join of a member credits code and inviter
//   - fetch_count: the platform was asked for invites exactly N times
//   - retry_count: the engine waited before a retry exactly N times
//   - baseline: a stored code has the given uses and creator
//   - baseline_absent: a code was never stored
//
// # Deterministic Testing
//
// Every run uses an in-memory database, a fake clock starting at
// testutil.Epoch, a sleeper that never blocks, and a fixed attempt id
// (scenario.attempt_id, or "test-attempt-default"). Identical scenarios
// always produce identical golden output.
package harness
