//go:build unix

package daemon

import "syscall"

// diskUsage reports total and free bytes at the filesystem root
// containing path (spec.md section 4.5: ask_disk_state replies with
// bytes "at the filesystem root").
func diskUsage(path string) (total, free uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
