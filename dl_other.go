//go:build !darwin && !freebsd && !linux && !netbsd && !windows

package nativebind

import (
	"errors"
	"runtime"
)

var errUnsupportedPlatform = errors.New("nativebind: dynamic loading unsupported on " + runtime.GOOS)

func openLibrary(string) (uintptr, error) { return 0, errUnsupportedPlatform }

func lookupSymbol(uintptr, string) (uintptr, error) { return 0, errUnsupportedPlatform }
