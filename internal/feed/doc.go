// Package feed carries change signals between the components that mutate
// rooms, messages, and notifications and the clients watching them.
//
// Events are signals, not payloads: a subscriber that receives one re-reads
// the store for the authoritative state. The Hub keeps a bounded history for
// long-poll clients, fans out to per-topic subscriptions for websocket
// clients, and hands every event to registered sinks such as the Redis
// relay that links several daemon instances.
package feed
