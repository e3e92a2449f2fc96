//go:build windows

package fsutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// Usage returns total, used and available bytes of the volume holding path
func Usage(path string) (DiskUsage, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("invalid path %s: %w", path, err)
	}

	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(name, &free, &total, &totalFree); err != nil {
		return DiskUsage{}, fmt.Errorf("failed to query free space of %s: %w", path, err)
	}

	return DiskUsage{
		Total: int64(total),
		Used:  int64(total - totalFree),
		Free:  int64(free),
	}, nil
}

// LinkCount returns 1; hardlink detection is not supported on Windows
func LinkCount(fi os.FileInfo) uint64 {
	return 1
}
