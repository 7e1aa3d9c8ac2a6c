// Package workspace manages scratch directories used while verifying a build,
// such as the directory holding the generated import-check script.
//
// Ephemeral workspaces get a unique name per call so concurrent units never
// share one, and are removed completely by Cleanup. A kept workspace survives
// Cleanup, which helps when debugging a failing import check.
package workspace
