//go:build unix

package diskusage

import "syscall"

// Capacity returns the total size in bytes of the filesystem holding the
// given directory.
func Capacity(dir string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	return stat.Blocks * uint64(stat.Bsize), nil
}
