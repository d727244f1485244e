package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space required on the project volume.
// Snapshots are written atomically through a temp file, so the volume
// needs headroom for two copies of the index at once.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace verifies the volume holding the project has room for
// snapshot writes.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		return CheckResult{
			Name:     "disk_space",
			Required: true,
			Status:   StatusFail,
			Message:  fmt.Sprintf("statfs %s: %v", path, err),
		}
	}

	free := fs.Bavail * uint64(fs.Bsize)
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
		Status:   StatusPass,
		Message:  fmt.Sprintf("%s free (minimum: %s)", formatBytes(free), formatBytes(MinDiskSpaceBytes)),
	}
	if free < MinDiskSpaceBytes {
		result.Status = StatusFail
	}
	return result
}

// formatBytes renders a byte count in the largest binary unit that keeps
// the number readable.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
