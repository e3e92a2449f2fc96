// Package fsutil reports disk usage and hardlink counts for the folders
// qbitprune cleans up.
package fsutil

// DiskUsage describes the filesystem holding a path, in bytes
type DiskUsage struct {
	Total int64
	Used  int64
	Free  int64
}

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding path
func FreeSpace(path string) (int64, error) {
	usage, err := Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
