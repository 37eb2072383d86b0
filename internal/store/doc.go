// Package store persists support rooms, their message logs, staff
// notifications, and customer billing tiers in SQLite.
//
// Every state change that other participants race on is expressed as a
// conditional statement inside a transaction: claims only apply while a room
// is unclaimed, closes only while it is active, and posts only while the room
// is active and the sender is a participant. The system notice that
// accompanies a claim or close commits with it, so observers never see one
// without the other.
//
// The database holds one active room per customer, enforced by a partial
// unique index. Schema changes bump the version in schema.go; users clear the
// database to adopt the new schema.
package store
