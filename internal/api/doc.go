// Package api defines wire-format types and converters for the HTTP and IPC
// layers. It translates store, assistant, feed and billing models into
// transport-friendly DTOs that the web dashboard and the CLI render without
// coupling to internal types.
//
// # Key Types
//
// Room/Message: conversation records with the claimant and sender flattened
// to optional ids.
//
// AssistantReply: classifier output plus the room the caller was routed to
// when the reply escalated.
//
// DaemonStatus: runtime information, desk counts and environment checks.
//
// FeedEvent/FeedResponse: change signals for long-poll consumers.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Enums are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
