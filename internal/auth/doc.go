// Package auth verifies the bearer tokens that identify customers and staff
// and mints tokens for operators.
package auth
