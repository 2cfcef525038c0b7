// Package sdlimage wraps SDL2_image. Images decode into sdl.Surface values
// and can be read from any Go io.ReadSeeker through an adapted stream.
package sdlimage

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"github.com/thesyncim/nativebind"
	"github.com/thesyncim/nativebind/sdl"
)

// LibraryName is the logical name SDL2_image is registered under.
const LibraryName = "SDL2_image"

// Candidates are the file stems tried for SDL2_image.
var Candidates = nativebind.Stems("SDL2_image", "SDL2_image-2.0", "SDL2_image-1.2")

// Init flags.
const (
	InitJPG  = 0x00000001
	InitPNG  = 0x00000002
	InitTIF  = 0x00000004
	InitWEBP = 0x00000008
)

// Format names an image format as IMG_LoadTyped_RW spells it.
type Format string

const (
	ICO  Format = "ICO"
	CUR  Format = "CUR"
	BMP  Format = "BMP"
	GIF  Format = "GIF"
	JPG  Format = "JPG"
	LBM  Format = "LBM"
	PCX  Format = "PCX"
	PNG  Format = "PNG"
	PNM  Format = "PNM"
	TGA  Format = "TGA"
	TIF  Format = "TIF"
	XCF  Format = "XCF"
	XPM  Format = "XPM"
	XV   Format = "XV"
	WEBP Format = "WEBP"
)

// ErrUnavailable is returned when SDL2_image could not be loaded.
var ErrUnavailable = errors.New("sdlimage: SDL2_image not available")

// ErrUnknownFormat is returned by Detect when no probe matches.
var ErrUnknownFormat = errors.New("sdlimage: unknown image format")

var (
	loadOnce sync.Once
	loadErr  error
)

var (
	imgInit          func(flags int32) int32
	imgQuit          func()
	imgLinkedVersion func() uintptr
	imgLoad          func(file string) uintptr
	imgLoadRW        func(src uintptr, freesrc int32) uintptr
	imgLoadTypedRW   func(src uintptr, freesrc int32, typ string) uintptr
)

type detector struct {
	format Format
	is     func(src uintptr) int32
}

// detectors are probed in order by Detect. TGA has no signature probe.
var detectors = []*detector{
	{format: ICO}, {format: CUR}, {format: BMP}, {format: GIF},
	{format: JPG}, {format: LBM}, {format: PCX}, {format: PNG},
	{format: PNM}, {format: TIF}, {format: XCF}, {format: XPM},
	{format: XV}, {format: WEBP},
}

var loaders = map[Format]*func(src uintptr) uintptr{}

func load() error {
	loadOnce.Do(func() {
		loadErr = loadLib()
	})
	return loadErr
}

func loadLib() error {
	if _, err := sdl.Library(); err != nil {
		return err
	}
	l, err := nativebind.Open(LibraryName, Candidates)
	if err != nil {
		return err
	}

	const (
		ptr = nativebind.Pointer
		i32 = nativebind.Int32
	)
	sig := nativebind.Sig
	bindings := []nativebind.Binding{
		nativebind.Fn(&imgInit, sig("IMG_Init", i32, i32)),
		nativebind.Fn(&imgQuit, sig("IMG_Quit", nativebind.Void)),
		nativebind.Fn(&imgLinkedVersion, sig("IMG_Linked_Version", ptr)),
		nativebind.Fn(&imgLoad, sig("IMG_Load", ptr, nativebind.String)),
		nativebind.Fn(&imgLoadRW, sig("IMG_Load_RW", ptr, ptr, i32)),
		nativebind.Fn(&imgLoadTypedRW, sig("IMG_LoadTyped_RW", ptr, ptr, i32, nativebind.String)),
	}
	for _, d := range detectors {
		bindings = append(bindings,
			nativebind.Fn(&d.is, sig("IMG_is"+string(d.format), i32, ptr)))
	}
	typed := make(map[Format]*func(src uintptr) uintptr)
	for _, d := range detectors {
		typed[d.format] = new(func(src uintptr) uintptr)
	}
	typed[TGA] = new(func(src uintptr) uintptr)
	for f, fn := range typed {
		bindings = append(bindings,
			nativebind.Fn(fn, sig("IMG_Load"+string(f)+"_RW", ptr, ptr)))
	}
	if err := nativebind.BindAll(l, bindings...); err != nil {
		return err
	}
	loaders = typed
	return nil
}

func ensure() error {
	if err := load(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Available reports whether SDL2_image was found and all bindings
// resolved.
func Available() bool {
	return load() == nil
}

// Init loads the decoders named by flags. It fails if any of them is
// missing.
func Init(flags int) error {
	if err := ensure(); err != nil {
		return err
	}
	got := int(imgInit(int32(flags)))
	if got&flags != flags {
		return &nativebind.CallError{Symbol: "IMG_Init", Code: int64(got), Msg: sdl.GetError()}
	}
	return nil
}

// Quit unloads the decoders.
func Quit() {
	if ensure() == nil {
		imgQuit()
	}
}

// LinkedVersion returns the loaded library's version.
func LinkedVersion() (sdl.Version, error) {
	if err := ensure(); err != nil {
		return sdl.Version{}, err
	}
	p := imgLinkedVersion()
	if err := nativebind.CheckPointer("IMG_Linked_Version", p, sdl.GetError); err != nil {
		return sdl.Version{}, err
	}
	return *(*sdl.Version)(unsafe.Pointer(p)), nil
}

func surface(symbol string, p uintptr) (*sdl.Surface, error) {
	if err := nativebind.CheckPointer(symbol, p, sdl.GetError); err != nil {
		return nil, err
	}
	return sdl.SurfaceAt(p), nil
}

// Load decodes the image file at path.
func Load(path string) (*sdl.Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	return surface("IMG_Load", imgLoad(path))
}

// LoadRW decodes an image from src. With freesrc, SDL2_image closes src.
func LoadRW(src *sdl.RW, freesrc bool) (*sdl.Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	s, err := surface("IMG_Load_RW", imgLoadRW(src.Ptr(), boolInt(freesrc)))
	if freesrc {
		src.Consumed()
	}
	return s, err
}

// LoadTypedRW decodes src as format. With freesrc, SDL2_image closes src.
func LoadTypedRW(src *sdl.RW, freesrc bool, format Format) (*sdl.Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	s, err := surface("IMG_LoadTyped_RW", imgLoadTypedRW(src.Ptr(), boolInt(freesrc), string(format)))
	if freesrc {
		src.Consumed()
	}
	return s, err
}

// LoadFormatRW decodes src with the format-specific loader. src stays
// open.
func LoadFormatRW(src *sdl.RW, format Format) (*sdl.Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	fn, ok := loaders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", nativebind.ErrInvalidArgument, format)
	}
	return surface("IMG_Load"+string(format)+"_RW", (*fn)(src.Ptr()))
}

// Decode reads an image from a Go stream. r is left open.
func Decode(r io.ReadSeeker) (*sdl.Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	rw, err := sdl.RWFromReader(r)
	if err != nil {
		return nil, err
	}
	return LoadRW(rw, true)
}

// Is reports whether src holds an image in format. The stream position
// is left unchanged.
func Is(src *sdl.RW, format Format) (bool, error) {
	if err := ensure(); err != nil {
		return false, err
	}
	for _, d := range detectors {
		if d.format == format {
			return d.is(src.Ptr()) == 1, nil
		}
	}
	return false, fmt.Errorf("%w: no probe for %q", nativebind.ErrInvalidArgument, format)
}

// Detect returns the first format whose probe matches src.
func Detect(src *sdl.RW) (Format, error) {
	if err := ensure(); err != nil {
		return "", err
	}
	for _, d := range detectors {
		if d.is(src.Ptr()) == 1 {
			return d.format, nil
		}
	}
	return "", ErrUnknownFormat
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
