//go:build !linux && !darwin && !windows

package nativebind

import (
	"os"
	"path/filepath"
)

func systemSearchDirs() []string {
	var dirs []string
	dirs = append(dirs, filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))...)
	dirs = append(dirs, "/lib", "/usr/lib", "/usr/local/lib")
	return uniqueDirs(dirs)
}
