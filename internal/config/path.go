package config

import (
	"os"
	"path/filepath"
)

const dataFileName = "aesdsocketdata"

// DefaultDataFile returns the backing file path for the shared log. /var/tmp
// is preferred since it is the conventional scratch area for daemons; the OS
// temp dir is the fallback.
func DefaultDataFile() string {
	if isDir("/var/tmp") {
		return filepath.Join("/var/tmp", dataFileName)
	}
	return filepath.Join(os.TempDir(), dataFileName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
