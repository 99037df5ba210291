package store

import (
	"os"
)

// sideFileSuffixes are the files SQLite may keep next to the main database.
var sideFileSuffixes = []string{"", "-journal", "-wal", "-shm"}

// DiskUsageBytes returns the total size in bytes of the cache database at path and
// any SQLite side files. Missing files count as zero.
func DiskUsageBytes(path string) (int64, error) {
	var total int64
	for _, suffix := range sideFileSuffixes {
		info, err := os.Stat(path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total, nil
}
