// Package handoff enforces who may act on a support room in each state.
//
// A room moves unclaimed(active) → claimed(active) → closed. Any staff member
// may claim an unclaimed room and the first claim wins; losing a claim race
// is reported as a result, not an error. Only the owner and the claimant may
// post while the room is active, and nobody may post once it is closed.
//
// Every successful write publishes a change signal on the feed hub.
// The coordinator never retries; store errors surface to the caller.
package handoff
