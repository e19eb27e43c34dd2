// Package diskusage provides best-effort storage accounting for the local
// store and the response cache.
package diskusage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DirSize returns the total size in bytes of all regular files under dir.
// A missing directory counts as zero.
func DirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}
