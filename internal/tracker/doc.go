// Package tracker turns platform events into engine calls and join-log rows.
//
// HandleJoin is the per-join workflow: attribute with one retry, classify the
// outcome, append exactly one join-log row, count it, and optionally post an
// audit line. Nothing it does is allowed to fail the join itself; every error
// ends up in the Outcome and the log.
//
// CreateInvite mints a code on behalf of a human and records that human as
// the code's creator before any snapshot can store the bot instead.
package tracker
