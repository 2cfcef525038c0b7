package nativebind

import (
	"os"
	"path/filepath"
)

func systemSearchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	dirs = append(dirs, filepath.SplitList(os.Getenv("PATH"))...)
	if root := os.Getenv("SystemRoot"); root != "" {
		dirs = append(dirs, filepath.Join(root, "System32"), root)
	}
	return uniqueDirs(dirs)
}
