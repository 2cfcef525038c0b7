package nativebind

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve("missing", Stems("nativebind-does-not-exist"), WithDir(t.TempDir()))
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("Resolve error = %v, want ErrLibraryNotFound", err)
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Resolve error = %T, want *LoadError", err)
	}
	if le.Library != "missing" || len(le.Tried) != 0 {
		t.Errorf("LoadError = %+v", le)
	}
}

func TestResolveAllCandidatesFail(t *testing.T) {
	dir := t.TempDir()
	name := FileNames(runtime.GOOS, "nativebind-bogus")[0]
	bogus := touch(t, dir, name)

	logger, out := captureLogger()
	_, err := Resolve("bogus", Stems("nativebind-bogus"), WithDir(dir), WithLogger(logger))
	if !errors.Is(err, ErrLibraryLoad) {
		t.Fatalf("Resolve error = %v, want ErrLibraryLoad", err)
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Resolve error = %T, want *LoadError", err)
	}
	if len(le.Tried) != 1 || le.Tried[0] != bogus {
		t.Errorf("Tried = %v, want [%s]", le.Tried, bogus)
	}
	if le.Last == nil {
		t.Error("LoadError.Last is nil")
	}
	if !strings.Contains(out.String(), bogus) {
		t.Errorf("log output %q does not mention %s", out.String(), bogus)
	}
}

func TestResolveFallsBackPastBrokenCandidate(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on the ELF soname layout")
	}
	resolveLibc(t)

	dir := t.TempDir()
	bogus := touch(t, dir, "libc.so")
	logger, out := captureLogger()
	lib, err := Resolve("c", libcCandidates, WithDir(dir), WithLogger(logger))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if lib.Path() == bogus {
		t.Fatalf("Resolve loaded the broken candidate %s", bogus)
	}
	if !strings.Contains(out.String(), "could not load "+bogus) {
		t.Errorf("log output %q has no warning for %s", out.String(), bogus)
	}
	if lib.Name() != "c" || lib.Platform() != "linux" || lib.Handle() == 0 {
		t.Errorf("Library = %v platform=%s handle=%#x", lib, lib.Platform(), lib.Handle())
	}
	if !lib.Has("strlen") {
		t.Error("libc does not export strlen")
	}
	if lib.Has("nativebind_no_such_symbol") {
		t.Error("Has reported a missing symbol")
	}
}

func TestOpenCachesSuccess(t *testing.T) {
	resolveLibc(t)

	a, err := Open("libc-open-test", libcCandidates)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open("libc-open-test", Stems("ignored-after-first-open"))
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if a != b {
		t.Error("Open returned different handles for the same name")
	}
	if got, ok := Loaded("libc-open-test"); !ok || got != a {
		t.Errorf("Loaded = %v, %v", got, ok)
	}
}

func TestOpenDoesNotCacheFailure(t *testing.T) {
	_, err := Open("open-failure-test", Stems("nativebind-does-not-exist"))
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("Open error = %v, want ErrLibraryNotFound", err)
	}
	if _, ok := Loaded("open-failure-test"); ok {
		t.Error("failed Open was cached")
	}
	resolveLibc(t)
	if _, err := Open("open-failure-test", libcCandidates); err != nil {
		t.Errorf("retry with working candidates failed: %v", err)
	}
}

func TestOpenConcurrent(t *testing.T) {
	resolveLibc(t)

	const n = 16
	got := make(chan *Library, n)
	for i := 0; i < n; i++ {
		go func() {
			lib, err := Open("libc-concurrent-test", libcCandidates)
			if err != nil {
				t.Errorf("Open: %v", err)
			}
			got <- lib
		}()
	}
	first := <-got
	for i := 1; i < n; i++ {
		if lib := <-got; lib != first {
			t.Error("concurrent Open returned distinct handles")
		}
	}
}

func TestSearchDir(t *testing.T) {
	t.Cleanup(func() { SetSearchDir("") })

	envDir := t.TempDir()
	t.Setenv(EnvLibPath, envDir)
	if got := SearchDir(); got != envDir {
		t.Errorf("SearchDir = %q, want env value %q", got, envDir)
	}

	dir := t.TempDir()
	if err := SetSearchDir(dir); err != nil {
		t.Fatalf("SetSearchDir: %v", err)
	}
	if got := SearchDir(); got != dir {
		t.Errorf("SearchDir = %q, want %q", got, dir)
	}

	file := touch(t, dir, "plain")
	if err := SetSearchDir(file); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetSearchDir(file) error = %v, want ErrInvalidArgument", err)
	}
	if err := SetSearchDir(filepath.Join(dir, "missing")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetSearchDir(missing) error = %v, want ErrInvalidArgument", err)
	}
	if got := SearchDir(); got != dir {
		t.Errorf("SearchDir after rejected set = %q, want %q", got, dir)
	}
}

func TestFindCandidatesUsesSearchDir(t *testing.T) {
	dir := t.TempDir()
	name := FileNames(runtime.GOOS, "nativebind-search")[0]
	want := touch(t, dir, name)
	t.Setenv(EnvLibPath, dir)

	got := FindCandidates(Stems("nativebind-search"))
	if len(got) == 0 || got[0] != want {
		t.Errorf("FindCandidates = %v, want %s first", got, want)
	}
}

func TestUniqueDirs(t *testing.T) {
	got := uniqueDirs([]string{"/usr/lib/", "", "/usr/lib", "/lib", "/usr/./lib"})
	want := []string{"/usr/lib", "/lib"}
	if len(got) != len(want) {
		t.Fatalf("uniqueDirs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != filepath.Clean(want[i]) {
			t.Errorf("uniqueDirs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
