package preflight

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinMemoryBytes is the recommended available memory. The whole index
// lives in memory while serving.
const MinMemoryBytes = 1 * 1024 * 1024 * 1024

// CheckMemory reports whether the machine has headroom for the in-memory
// index. The check is advisory: a tight machine degrades performance
// rather than breaking correctness, and on platforms without /proc the
// amount is unknowable.
func (c *Checker) CheckMemory() CheckResult {
	available, err := readAvailableMemory()
	if err != nil {
		return CheckResult{
			Name:    "memory",
			Status:  StatusWarn,
			Message: "could not determine available memory",
			Details: err.Error(),
		}
	}

	result := CheckResult{
		Name:    "memory",
		Status:  StatusPass,
		Message: fmt.Sprintf("%s available (minimum: %s)", formatBytes(available), formatBytes(MinMemoryBytes)),
	}
	if available < MinMemoryBytes {
		result.Status = StatusWarn
		result.Details = "Large trees may not fit in memory"
	}
	return result
}

// readAvailableMemory reads MemAvailable from /proc/meminfo. The value
// accounts for reclaimable page cache, which plain free-memory figures
// undercount badly on busy machines.
func readAvailableMemory() (uint64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("malformed meminfo line: %q", line)
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse meminfo value: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("MemAvailable not present in /proc/meminfo")
}
