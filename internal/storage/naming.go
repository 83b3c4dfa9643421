package storage

import (
	"os"
	"path/filepath"
	"strconv"
)

// FlatLimit is the largest file count written as flat siblings; larger
// sets go in a directory.
const FlatLimit = 100

// SiblingName returns the name of file nr of a set whose first file is
// named base.
func SiblingName(base string, nr int) string {
	if nr == 0 {
		return base
	}
	return base + "." + strconv.Itoa(nr)
}

// SiblingPath returns the path of file nr of the dataset at path. In the
// directory layout path is a directory holding files named after it.
func SiblingPath(path string, nr int, dir bool) string {
	if !dir {
		return SiblingName(path, nr)
	}
	return filepath.Join(path, SiblingName(filepath.Base(path), nr))
}

// IsDirLayout reports whether the dataset at path uses the directory layout.
func IsDirLayout(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// UseDirLayout reports whether a set of n files is written as a directory.
func UseDirLayout(n int, requested bool) bool {
	return requested || n > FlatLimit
}
