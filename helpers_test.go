package nativebind

import (
	"bytes"
	"runtime"
	"sync"
	"testing"

	"github.com/pion/logging"
)

// libcCandidates names the C runtime on platforms where it exists as a
// file on disk.
var libcCandidates = Candidates{
	"linux":         {"c"},
	"freebsd":       {"c"},
	"netbsd":        {"c"},
	"windows":       {"msvcrt"},
	DefaultPlatform: {"c"},
}

// resolveLibc returns a fresh, uncached handle to the C runtime.
func resolveLibc(t testing.TB, opts ...Option) *Library {
	t.Helper()
	lib, err := Resolve("c", libcCandidates, opts...)
	if err != nil {
		t.Skipf("C runtime not available: %v", err)
	}
	return lib
}

// requireCallbacks skips on targets where purego cannot create callbacks.
func requireCallbacks(t testing.TB) {
	t.Helper()
	switch runtime.GOOS {
	case "darwin", "linux", "windows":
	default:
		t.Skipf("callbacks not supported on %s", runtime.GOOS)
	}
	switch runtime.GOARCH {
	case "amd64", "arm64":
	default:
		t.Skipf("callbacks not supported on %s", runtime.GOARCH)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogger returns a debug-level logger writing into a buffer.
func captureLogger() (logging.LeveledLogger, *syncBuffer) {
	out := &syncBuffer{}
	return logging.NewDefaultLeveledLoggerForScope("test", logging.LogLevelDebug, out), out
}
