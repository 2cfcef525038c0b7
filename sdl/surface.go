package sdl

import (
	"fmt"
	"unsafe"

	"github.com/thesyncim/nativebind"
)

// RLEAccel is the surface flag that makes pixel access require a lock.
const RLEAccel uint32 = 0x00000002

var (
	sdlCreateRGBSurface func(flags uint32, w, h, depth int32, rmask, gmask, bmask, amask uint32) uintptr
	sdlFreeSurface      func(s uintptr)
	sdlLockSurface      func(s uintptr) int32
	sdlUnlockSurface    func(s uintptr)
	sdlFillRect         func(dst uintptr, rect *Rect, color uint32) int32
	sdlMapRGBA          func(format uintptr, r, g, b, a uint8) uint32
	sdlSetSurfaceRLE    func(s uintptr, flag int32) int32
	sdlLoadBMPRW        func(src uintptr, freesrc int32) uintptr
	sdlSaveBMPRW        func(s, dst uintptr, freedst int32) int32
)

func surfaceBindings() []nativebind.Binding {
	const (
		ptr = nativebind.Pointer
		i32 = nativebind.Int32
		u8  = nativebind.Uint8
		u32 = nativebind.Uint32
	)
	sig := nativebind.Sig
	return []nativebind.Binding{
		nativebind.Fn(&sdlCreateRGBSurface, sig("SDL_CreateRGBSurface", ptr, u32, i32, i32, i32, u32, u32, u32, u32)),
		nativebind.Fn(&sdlFreeSurface, sig("SDL_FreeSurface", nativebind.Void, ptr)),
		nativebind.Fn(&sdlLockSurface, sig("SDL_LockSurface", i32, ptr)),
		nativebind.Fn(&sdlUnlockSurface, sig("SDL_UnlockSurface", nativebind.Void, ptr)),
		nativebind.Fn(&sdlFillRect, sig("SDL_FillRect", i32, ptr, ptr, u32)),
		nativebind.Fn(&sdlMapRGBA, sig("SDL_MapRGBA", u32, ptr, u8, u8, u8, u8)),
		nativebind.Fn(&sdlSetSurfaceRLE, sig("SDL_SetSurfaceRLE", i32, ptr, i32)),
		nativebind.Fn(&sdlLoadBMPRW, sig("SDL_LoadBMP_RW", ptr, ptr, i32)),
		nativebind.Fn(&sdlSaveBMPRW, sig("SDL_SaveBMP_RW", i32, ptr, ptr, i32)),
	}
}

// Rect is SDL_Rect.
type Rect struct {
	X, Y, W, H int32
}

// surfaceRecord mirrors the public head of SDL_Surface.
type surfaceRecord struct {
	Flags    uint32
	Format   uintptr
	W        int32
	H        int32
	Pitch    int32
	Pixels   uintptr
	Userdata uintptr
	Locked   int32
	LockData uintptr
	ClipRect Rect
	Map      uintptr
	Refcount int32
}

// pixelFormat mirrors the head of SDL_PixelFormat.
type pixelFormat struct {
	Format        uint32
	Palette       uintptr
	BitsPerPixel  uint8
	BytesPerPixel uint8
	_             [2]uint8
	Rmask         uint32
	Gmask         uint32
	Bmask         uint32
	Amask         uint32
}

// Surface is an SDL_Surface owned by SDL. It implements
// nativebind.BufferSource and nativebind.Locker, so pixels are read with
// nativebind.NewView or WithView.
type Surface struct {
	ptr uintptr
}

// SurfaceAt wraps a native SDL_Surface pointer.
func SurfaceAt(ptr uintptr) *Surface {
	if ptr == 0 {
		return nil
	}
	return &Surface{ptr: ptr}
}

// CreateRGBSurface allocates a surface with the given depth and channel
// masks.
func CreateRGBSurface(w, h, depth int, rmask, gmask, bmask, amask uint32) (*Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	p := sdlCreateRGBSurface(0, int32(w), int32(h), int32(depth), rmask, gmask, bmask, amask)
	if err := checkPtr("SDL_CreateRGBSurface", p); err != nil {
		return nil, err
	}
	return &Surface{ptr: p}, nil
}

func (s *Surface) rec() *surfaceRecord {
	return (*surfaceRecord)(unsafe.Pointer(s.ptr))
}

func (s *Surface) format() *pixelFormat {
	return (*pixelFormat)(unsafe.Pointer(s.rec().Format))
}

// Ptr returns the native pointer.
func (s *Surface) Ptr() uintptr { return s.ptr }

// Flags returns the surface flags.
func (s *Surface) Flags() uint32 { return s.rec().Flags }

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (w, h int) { return int(s.rec().W), int(s.rec().H) }

// Pitch returns the bytes per row.
func (s *Surface) Pitch() int { return int(s.rec().Pitch) }

// BitsPerPixel returns the pixel depth.
func (s *Surface) BitsPerPixel() int { return int(s.format().BitsPerPixel) }

// BytesPerPixel returns the size of one pixel.
func (s *Surface) BytesPerPixel() int { return int(s.format().BytesPerPixel) }

// Masks returns the red, green, blue and alpha channel masks.
func (s *Surface) Masks() (r, g, b, a uint32) {
	f := s.format()
	return f.Rmask, f.Gmask, f.Bmask, f.Amask
}

// MustLock reports whether pixel access requires Lock.
func (s *Surface) MustLock() bool { return s.rec().Flags&RLEAccel != 0 }

// Lock makes the pixels addressable.
func (s *Surface) Lock() error { return check("SDL_LockSurface", sdlLockSurface(s.ptr)) }

// Unlock releases a Lock.
func (s *Surface) Unlock() { sdlUnlockSurface(s.ptr) }

// Buffer describes the pixel memory. On RLE surfaces it is only valid
// while locked.
func (s *Surface) Buffer() (nativebind.Buffer, error) {
	r := s.rec()
	if r.Pixels == 0 {
		return nativebind.Buffer{}, fmt.Errorf("sdl: surface has no pixels (locked=%d)", r.Locked)
	}
	return nativebind.Buffer{
		Ptr:      unsafe.Pointer(r.Pixels),
		ItemSize: s.BytesPerPixel(),
		Width:    int(r.W),
		Height:   int(r.H),
		Pitch:    int(r.Pitch),
	}, nil
}

// SetRLE toggles RLE acceleration.
func (s *Surface) SetRLE(on bool) error {
	return check("SDL_SetSurfaceRLE", sdlSetSurfaceRLE(s.ptr, boolInt(on)))
}

// FillRect fills rect, or the whole surface when rect is nil.
func (s *Surface) FillRect(rect *Rect, color uint32) error {
	return check("SDL_FillRect", sdlFillRect(s.ptr, rect, color))
}

// MapRGBA maps a colour to the surface's pixel format.
func (s *Surface) MapRGBA(r, g, b, a uint8) uint32 {
	return sdlMapRGBA(s.rec().Format, r, g, b, a)
}

// Free releases the surface. It is safe to call on nil.
func (s *Surface) Free() {
	if s == nil || s.ptr == 0 {
		return
	}
	sdlFreeSurface(s.ptr)
	s.ptr = 0
}

// LoadBMPRW decodes a BMP image from src. With freesrc, SDL closes src
// whether or not decoding succeeds.
func LoadBMPRW(src *RW, freesrc bool) (*Surface, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	p := sdlLoadBMPRW(src.Ptr(), boolInt(freesrc))
	if freesrc {
		src.Consumed()
	}
	if err := checkPtr("SDL_LoadBMP_RW", p); err != nil {
		return nil, err
	}
	return &Surface{ptr: p}, nil
}

// LoadBMP decodes the BMP file at path.
func LoadBMP(path string) (*Surface, error) {
	rw, err := RWFromFile(path, "rb")
	if err != nil {
		return nil, err
	}
	return LoadBMPRW(rw, true)
}

// SaveBMPRW encodes s as BMP into dst. With freedst, SDL closes dst.
func (s *Surface) SaveBMPRW(dst *RW, freedst bool) error {
	err := check("SDL_SaveBMP_RW", sdlSaveBMPRW(s.ptr, dst.Ptr(), boolInt(freedst)))
	if freedst {
		dst.Consumed()
	}
	return err
}

// SaveBMP writes s to path as BMP.
func (s *Surface) SaveBMP(path string) error {
	rw, err := RWFromFile(path, "wb")
	if err != nil {
		return err
	}
	return s.SaveBMPRW(rw, true)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
