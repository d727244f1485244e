// Package preflight validates the environment before long-running
// commands start.
//
// The package checks:
//   - Disk space for the snapshot file (minimum 100MB)
//   - Available memory for the in-memory index (minimum 1GB)
//   - Write permissions in the project root
//   - File descriptor limits for the filesystem watcher (minimum 1024)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/project")
//	if checker.HasCriticalFailures(results) {
//	    // Refuse to start
//	}
package preflight
