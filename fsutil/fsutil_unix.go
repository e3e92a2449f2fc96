//go:build !windows

package fsutil

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Usage returns total, used and available bytes of the filesystem holding path
func Usage(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, fmt.Errorf("failed to statfs %s: %w", path, err)
	}

	bsize := int64(st.Bsize)
	return DiskUsage{
		Total: int64(st.Blocks) * bsize,
		Used:  (int64(st.Blocks) - int64(st.Bfree)) * bsize,
		Free:  int64(st.Bavail) * bsize,
	}, nil
}

// LinkCount returns the number of hardlinks for a file. File infos that do
// not come from the OS (in-memory filesystems) count as a single link.
func LinkCount(fi os.FileInfo) uint64 {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 1
	}
	return uint64(stat.Nlink)
}
