//go:build !unix

package diskusage

import "errors"

// Capacity is unsupported on this platform; callers report a zero quota.
func Capacity(dir string) (uint64, error) {
	return 0, errors.New("filesystem capacity accounting not supported")
}
