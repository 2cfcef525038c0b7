// Package sdl provides thin SDL2 bindings on top of nativebind.
//
// The library is loaded on first use. Every function reports an error when
// SDL2 is missing; Available tells callers up front.
package sdl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thesyncim/nativebind"
)

// LibraryName is the logical name SDL2 is registered under.
const LibraryName = "SDL2"

// Candidates are the file stems tried for SDL2.
var Candidates = nativebind.Candidates{
	"windows":                  {"SDL2"},
	nativebind.DefaultPlatform: {"SDL2", "SDL2-2.0"},
}

// Init flags.
const (
	InitTimer          uint32 = 0x00000001
	InitAudio          uint32 = 0x00000010
	InitVideo          uint32 = 0x00000020
	InitJoystick       uint32 = 0x00000200
	InitHaptic         uint32 = 0x00001000
	InitGameController uint32 = 0x00002000
	InitEvents         uint32 = 0x00004000
	InitNoParachute    uint32 = 0x00100000
)

// InitEverything names every subsystem.
const InitEverything = InitTimer | InitAudio | InitVideo | InitEvents |
	InitJoystick | InitHaptic | InitGameController

// ErrUnavailable is returned when SDL2 could not be loaded.
var ErrUnavailable = errors.New("sdl: SDL2 not available")

var (
	loadOnce sync.Once
	loadErr  error
	lib      *nativebind.Library
	layout   nativebind.Layout
)

var (
	sdlInit          func(flags uint32) int32
	sdlInitSubSystem func(flags uint32) int32
	sdlQuitSubSystem func(flags uint32)
	sdlWasInit       func(flags uint32) uint32
	sdlQuit          func()
	sdlGetError      func() uintptr
	sdlClearError    func()
	sdlGetVersion    func(v *Version)
	sdlGetRevision   func() uintptr
	sdlGetPlatform   func() uintptr
)

func load() error {
	loadOnce.Do(func() {
		loadErr = loadLib()
	})
	return loadErr
}

func loadLib() error {
	l, err := nativebind.Open(LibraryName, Candidates)
	if err != nil {
		return err
	}
	bindings := []nativebind.Binding{
		nativebind.Fn(&sdlInit, nativebind.Sig("SDL_Init", nativebind.Int32, nativebind.Uint32)),
		nativebind.Fn(&sdlInitSubSystem, nativebind.Sig("SDL_InitSubSystem", nativebind.Int32, nativebind.Uint32)),
		nativebind.Fn(&sdlQuitSubSystem, nativebind.Sig("SDL_QuitSubSystem", nativebind.Void, nativebind.Uint32)),
		nativebind.Fn(&sdlWasInit, nativebind.Sig("SDL_WasInit", nativebind.Uint32, nativebind.Uint32)),
		nativebind.Fn(&sdlQuit, nativebind.Sig("SDL_Quit", nativebind.Void)),
		nativebind.Fn(&sdlGetError, nativebind.Sig("SDL_GetError", nativebind.Pointer)),
		nativebind.Fn(&sdlClearError, nativebind.Sig("SDL_ClearError", nativebind.Void)),
		nativebind.Fn(&sdlGetVersion, nativebind.Sig("SDL_GetVersion", nativebind.Void, nativebind.Pointer)),
		nativebind.Fn(&sdlGetRevision, nativebind.Sig("SDL_GetRevision", nativebind.Pointer)),
		nativebind.Fn(&sdlGetPlatform, nativebind.Sig("SDL_GetPlatform", nativebind.Pointer)),
	}
	bindings = append(bindings, rwopsBindings()...)
	bindings = append(bindings, surfaceBindings()...)
	if err := nativebind.BindAll(l, bindings...); err != nil {
		return err
	}

	var v Version
	sdlGetVersion(&v)
	layout = layoutFor(v)
	lib = l
	return nil
}

// layoutFor picks the stream record shape: released 2.x headers carry a
// size slot, the 1.3 development series does not.
func layoutFor(v Version) nativebind.Layout {
	if v.Major >= 2 {
		return nativebind.LayoutSized
	}
	return nativebind.LayoutClassic
}

// Available reports whether SDL2 was found and all bindings resolved.
func Available() bool {
	return load() == nil
}

// Library returns the loaded handle, or an error if SDL2 is unavailable.
func Library() (*nativebind.Library, error) {
	if err := load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return lib, nil
}

// StreamLayout returns the stream record shape the loaded SDL2 expects.
func StreamLayout() nativebind.Layout {
	if load() != nil {
		return nativebind.LayoutClassic
	}
	return layout
}

func ensure() error {
	if err := load(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Init initialises the subsystems named by flags.
func Init(flags uint32) error {
	if err := ensure(); err != nil {
		return err
	}
	return check("SDL_Init", sdlInit(flags))
}

// InitSubSystem initialises additional subsystems.
func InitSubSystem(flags uint32) error {
	if err := ensure(); err != nil {
		return err
	}
	return check("SDL_InitSubSystem", sdlInitSubSystem(flags))
}

// QuitSubSystem shuts down the subsystems named by flags.
func QuitSubSystem(flags uint32) {
	if ensure() == nil {
		sdlQuitSubSystem(flags)
	}
}

// WasInit returns the subset of flags that is initialised. Zero flags
// asks for all of them.
func WasInit(flags uint32) uint32 {
	if ensure() != nil {
		return 0
	}
	return sdlWasInit(flags)
}

// Quit shuts down every subsystem.
func Quit() {
	if ensure() == nil {
		sdlQuit()
	}
}

// GetError returns SDL's last error message.
func GetError() string {
	if ensure() != nil {
		return ""
	}
	return nativebind.GoString(sdlGetError())
}

// ClearError clears SDL's last error message.
func ClearError() {
	if ensure() == nil {
		sdlClearError()
	}
}

// Version is SDL_version.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v is the given version or newer.
func (v Version) AtLeast(major, minor, patch uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

// GetVersion returns the version of the loaded library.
func GetVersion() (Version, error) {
	var v Version
	if err := ensure(); err != nil {
		return v, err
	}
	sdlGetVersion(&v)
	return v, nil
}

// GetRevision returns the source revision the library was built from.
func GetRevision() string {
	if ensure() != nil {
		return ""
	}
	return nativebind.GoString(sdlGetRevision())
}

// GetPlatform returns SDL's name for the running platform.
func GetPlatform() string {
	if ensure() != nil {
		return ""
	}
	return nativebind.GoString(sdlGetPlatform())
}

func lastError() string {
	return nativebind.GoString(sdlGetError())
}

func check(symbol string, code int32) error {
	return nativebind.CheckCode(symbol, int64(code), lastError)
}

func checkPtr(symbol string, ptr uintptr) error {
	return nativebind.CheckPointer(symbol, ptr, lastError)
}
