package nativebind

import (
	"os"
	"path/filepath"
)

func systemSearchDirs() []string {
	var dirs []string
	dirs = append(dirs, filepath.SplitList(os.Getenv("DYLD_LIBRARY_PATH"))...)
	dirs = append(dirs, filepath.SplitList(os.Getenv("DYLD_FALLBACK_LIBRARY_PATH"))...)
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Join(exeDir, "..", "Frameworks"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Library", "Frameworks"))
	}
	dirs = append(dirs,
		"/usr/local/lib",
		"/opt/homebrew/lib",
		"/opt/local/lib",
		"/usr/lib",
		"/Library/Frameworks",
		"/System/Library/Frameworks",
	)
	return uniqueDirs(dirs)
}
