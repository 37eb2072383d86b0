// Command reeldesk is the operator CLI for the support desk daemon.
//
// Room commands talk to a running daemon over its Unix socket and fall back
// to the database when the daemon is offline, so staff can still triage
// rooms during maintenance. Changes made offline do not reach live feed
// subscribers until they next poll.
package main
