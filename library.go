package nativebind

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pion/logging"
	"golang.org/x/sync/singleflight"
)

// EnvLibPath names a directory searched before the system locations when
// no explicit directory is configured.
const EnvLibPath = "NATIVEBIND_LIB_PATH"

// Library is one loaded native library. It is either fully loaded or not
// constructed at all, and is never unloaded.
type Library struct {
	name     string
	path     string
	platform string
	handle   uintptr

	mu      sync.RWMutex
	symbols map[string]*Symbol
}

// Name returns the logical library name.
func (l *Library) Name() string { return l.name }

// Path returns the file the library was loaded from.
func (l *Library) Path() string { return l.path }

// Platform returns the platform key used to select candidates.
func (l *Library) Platform() string { return l.platform }

// Handle returns the raw loader handle.
func (l *Library) Handle() uintptr { return l.handle }

// Has reports whether the library exports name.
func (l *Library) Has(name string) bool {
	addr, err := lookupSymbol(l.handle, name)
	return err == nil && addr != 0
}

func (l *Library) String() string {
	return fmt.Sprintf("%s (%s)", l.name, l.path)
}

type options struct {
	dir      string
	platform string
	logger   logging.LeveledLogger
}

// Option configures library resolution.
type Option func(*options)

// WithDir searches dir before the platform's standard locations.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithLogger sets the logger used to report candidates that fail to load.
func WithLogger(l logging.LeveledLogger) Option {
	return func(o *options) { o.logger = l }
}

// withPlatform overrides candidate selection and file naming. Tests only;
// the search directories always follow the running platform.
func withPlatform(p string) Option {
	return func(o *options) { o.platform = p }
}

var (
	searchDirMu sync.RWMutex
	searchDir   string
)

// SetSearchDir sets the process-wide explicit search directory. An empty
// dir clears it.
func SetSearchDir(dir string) error {
	if dir != "" {
		st, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: search dir: %v", ErrInvalidArgument, err)
		}
		if !st.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, dir)
		}
	}
	searchDirMu.Lock()
	searchDir = dir
	searchDirMu.Unlock()
	return nil
}

// SearchDir returns the explicit search directory in effect: the value set
// by SetSearchDir, else $NATIVEBIND_LIB_PATH.
func SearchDir() string {
	searchDirMu.RLock()
	dir := searchDir
	searchDirMu.RUnlock()
	if dir != "" {
		return dir
	}
	return os.Getenv(EnvLibPath)
}

func buildOptions(opts []Option) options {
	o := options{platform: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dir == "" {
		o.dir = SearchDir()
	}
	if o.logger == nil {
		o.logger = log()
	}
	return o
}

// FindCandidates returns the existing files for a library in load
// priority order: the explicit directory first, then the system search
// path, declaration order within each.
func FindCandidates(candidates Candidates, opts ...Option) []string {
	o := buildOptions(opts)
	return findCandidates(o, candidates.For(o.platform), systemSearchDirs())
}

func findCandidates(o options, stems []string, sysDirs []string) []string {
	var found []string
	seen := make(map[string]bool)
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				found = append(found, p)
			}
		}
	}
	if o.dir != "" {
		for _, stem := range stems {
			for _, name := range FileNames(o.platform, stem) {
				add(matchInDir(o.platform, o.dir, name))
			}
		}
	}
	for _, stem := range stems {
		for _, name := range FileNames(o.platform, stem) {
			for _, dir := range sysDirs {
				add(matchInDir(o.platform, dir, name))
			}
		}
	}
	return found
}

// Resolve locates and loads a library without consulting the process-wide
// cache. The first candidate that loads wins; each failure is logged and
// the next candidate tried.
func Resolve(name string, candidates Candidates, opts ...Option) (*Library, error) {
	o := buildOptions(opts)
	paths := findCandidates(o, candidates.For(o.platform), systemSearchDirs())
	return loadFirst(name, o, paths)
}

func loadFirst(name string, o options, paths []string) (*Library, error) {
	if len(paths) == 0 {
		return nil, &LoadError{Library: name, Err: ErrLibraryNotFound}
	}

	var lastErr error
	for _, path := range paths {
		handle, err := openLibrary(path)
		if err != nil {
			o.logger.Warnf("%s: could not load %s: %v", name, path, err)
			lastErr = err
			continue
		}
		o.logger.Debugf("%s: loaded %s", name, path)
		return &Library{
			name:     name,
			path:     path,
			platform: o.platform,
			handle:   handle,
			symbols:  make(map[string]*Symbol),
		}, nil
	}
	return nil, &LoadError{Library: name, Tried: paths, Err: ErrLibraryLoad, Last: lastErr}
}

var (
	libsMu    sync.RWMutex
	libs      = make(map[string]*Library)
	libsGroup singleflight.Group
)

// Open returns the process-wide handle for a logical library, resolving
// it on first use. Failures are not cached, so a later call with
// different options may succeed.
func Open(name string, candidates Candidates, opts ...Option) (*Library, error) {
	libsMu.RLock()
	lib, ok := libs[name]
	libsMu.RUnlock()
	if ok {
		return lib, nil
	}

	v, err, _ := libsGroup.Do(name, func() (any, error) {
		libsMu.RLock()
		lib, ok := libs[name]
		libsMu.RUnlock()
		if ok {
			return lib, nil
		}
		lib, err := Resolve(name, candidates, opts...)
		if err != nil {
			return nil, err
		}
		libsMu.Lock()
		libs[name] = lib
		libsMu.Unlock()
		return lib, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Library), nil
}

// Loaded returns the cached handle for name, if Open has succeeded for it.
func Loaded(name string) (*Library, bool) {
	libsMu.RLock()
	defer libsMu.RUnlock()
	lib, ok := libs[name]
	return lib, ok
}

func uniqueDirs(dirs []string) []string {
	out := dirs[:0]
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
