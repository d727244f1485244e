package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the minimum open-file limit trove runs under.
// The watcher holds one descriptor per watched directory, on top of
// whatever the indexing workers have open.
const MinFileDescriptors = 1024

// CheckFileDescriptors verifies the soft RLIMIT_NOFILE leaves room for
// directory watches alongside normal file traffic.
func (c *Checker) CheckFileDescriptors() CheckResult {
	var lim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &lim); err != nil {
		return CheckResult{
			Name:     "file_descriptors",
			Required: true,
			Status:   StatusFail,
			Message:  fmt.Sprintf("getrlimit: %v", err),
		}
	}

	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d (minimum: %d)", lim.Cur, MinFileDescriptors),
	}
	if lim.Cur < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 4096' to raise the limit"
	}
	return result
}
