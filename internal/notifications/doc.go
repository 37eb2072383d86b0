// Package notifications pushes support desk events to staff devices.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event type
// can be switched off individually; only escalations are on by default.
package notifications
