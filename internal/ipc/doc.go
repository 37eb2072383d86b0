// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// The socket is an operator channel: callers name the staff member they act
// as and the daemon applies the same room rules as the HTTP API. Request and
// response types reuse the api DTOs so both surfaces stay in step.
package ipc
