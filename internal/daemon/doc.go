// Package daemon coordinates the long-running reeldesk process.
//
// It wires configuration, the SQLite store, the change feed hub, the claim
// coordinator, the escalation bridge, billing and staff notifications into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon owns the HTTP API (chi router, bearer-token auth, long-poll and
// websocket feeds, Prometheus metrics) and the optional Redis feed relay.
//
// Keep orchestration logic here: room rules live in handoff, classification
// in assistant, and the daemon focuses on startup, shutdown, and transport.
package daemon
