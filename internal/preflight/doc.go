// Package preflight provides readiness checks for the filesystem paths and
// external services reeldesk depends on.
//
// These checks run in two contexts:
//   - The daemon includes them in its status so operators can see why pushes
//     or the relay are degraded.
//   - The CLI "reeldesk doctor" command prints every result.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
