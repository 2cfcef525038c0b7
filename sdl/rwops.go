package sdl

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"unsafe"

	"github.com/thesyncim/nativebind"
)

var (
	sdlRWFromFile     func(file, mode string) uintptr
	sdlRWFromMem      func(mem unsafe.Pointer, size int32) uintptr
	sdlRWFromConstMem func(mem unsafe.Pointer, size int32) uintptr
	sdlAllocRW        func() uintptr
	sdlFreeRW         func(rw uintptr)

	sdlReadU8   func(src uintptr) uint8
	sdlReadLE16 func(src uintptr) uint16
	sdlReadBE16 func(src uintptr) uint16
	sdlReadLE32 func(src uintptr) uint32
	sdlReadBE32 func(src uintptr) uint32
	sdlReadLE64 func(src uintptr) uint64
	sdlReadBE64 func(src uintptr) uint64

	sdlWriteU8   func(dst uintptr, value uint8) uintptr
	sdlWriteLE16 func(dst uintptr, value uint16) uintptr
	sdlWriteBE16 func(dst uintptr, value uint16) uintptr
	sdlWriteLE32 func(dst uintptr, value uint32) uintptr
	sdlWriteBE32 func(dst uintptr, value uint32) uintptr
	sdlWriteLE64 func(dst uintptr, value uint64) uintptr
	sdlWriteBE64 func(dst uintptr, value uint64) uintptr
)

func rwopsBindings() []nativebind.Binding {
	const (
		ptr = nativebind.Pointer
		str = nativebind.String
		u8  = nativebind.Uint8
		u16 = nativebind.Uint16
		u32 = nativebind.Uint32
		u64 = nativebind.Uint64
		sz  = nativebind.Uintptr
	)
	sig := nativebind.Sig
	return []nativebind.Binding{
		nativebind.Fn(&sdlRWFromFile, sig("SDL_RWFromFile", ptr, str, str)),
		nativebind.Fn(&sdlRWFromMem, sig("SDL_RWFromMem", ptr, ptr, nativebind.Int32)),
		nativebind.Fn(&sdlRWFromConstMem, sig("SDL_RWFromConstMem", ptr, ptr, nativebind.Int32)),
		nativebind.Fn(&sdlAllocRW, sig("SDL_AllocRW", ptr)),
		nativebind.Fn(&sdlFreeRW, sig("SDL_FreeRW", nativebind.Void, ptr)),

		nativebind.Fn(&sdlReadU8, sig("SDL_ReadU8", u8, ptr)),
		nativebind.Fn(&sdlReadLE16, sig("SDL_ReadLE16", u16, ptr)),
		nativebind.Fn(&sdlReadBE16, sig("SDL_ReadBE16", u16, ptr)),
		nativebind.Fn(&sdlReadLE32, sig("SDL_ReadLE32", u32, ptr)),
		nativebind.Fn(&sdlReadBE32, sig("SDL_ReadBE32", u32, ptr)),
		nativebind.Fn(&sdlReadLE64, sig("SDL_ReadLE64", u64, ptr)),
		nativebind.Fn(&sdlReadBE64, sig("SDL_ReadBE64", u64, ptr)),

		nativebind.Fn(&sdlWriteU8, sig("SDL_WriteU8", sz, ptr, u8)),
		nativebind.Fn(&sdlWriteLE16, sig("SDL_WriteLE16", sz, ptr, u16)),
		nativebind.Fn(&sdlWriteBE16, sig("SDL_WriteBE16", sz, ptr, u16)),
		nativebind.Fn(&sdlWriteLE32, sig("SDL_WriteLE32", sz, ptr, u32)),
		nativebind.Fn(&sdlWriteBE32, sig("SDL_WriteBE32", sz, ptr, u32)),
		nativebind.Fn(&sdlWriteLE64, sig("SDL_WriteLE64", sz, ptr, u64)),
		nativebind.Fn(&sdlWriteBE64, sig("SDL_WriteBE64", sz, ptr, u64)),
	}
}

// RW is an SDL_RWops stream: either one SDL created or a Go stream
// adapted for SDL. It implements io.ReadWriteSeeker and io.Closer.
type RW struct {
	*nativebind.Stream

	adapter *nativebind.StreamAdapter
	mem     []byte
	pinner  runtime.Pinner
	closed  bool
}

// RWFromFile opens path with an fopen-style mode.
func RWFromFile(path, mode string) (*RW, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	p := sdlRWFromFile(path, mode)
	if err := checkPtr("SDL_RWFromFile", p); err != nil {
		return nil, err
	}
	return &RW{Stream: nativebind.StreamAt(p, layout)}, nil
}

// RWFromMem opens a read-write stream over b. b is pinned until Close.
func RWFromMem(b []byte) (*RW, error) {
	return rwFromMem(b, false)
}

// RWFromConstMem opens a read-only stream over b. b is pinned until Close.
func RWFromConstMem(b []byte) (*RW, error) {
	return rwFromMem(b, true)
}

func rwFromMem(b []byte, readOnly bool) (*RW, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	size, err := memSize(int64(len(b)))
	if err != nil {
		return nil, err
	}
	rw := &RW{mem: b}
	rw.pinner.Pin(&b[0])

	var p uintptr
	symbol := "SDL_RWFromMem"
	if readOnly {
		symbol = "SDL_RWFromConstMem"
		p = sdlRWFromConstMem(unsafe.Pointer(&b[0]), size)
	} else {
		p = sdlRWFromMem(unsafe.Pointer(&b[0]), size)
	}
	if err := checkPtr(symbol, p); err != nil {
		rw.pinner.Unpin()
		return nil, err
	}
	rw.Stream = nativebind.StreamAt(p, layout)
	return rw, nil
}

// memSize converts a buffer length to the int SDL takes for memory streams.
func memSize(n int64) (int32, error) {
	switch {
	case n == 0:
		return 0, fmt.Errorf("%w: empty buffer", nativebind.ErrInvalidArgument)
	case n > math.MaxInt32:
		return 0, fmt.Errorf("%w: buffer of %d bytes exceeds %d", nativebind.ErrInvalidArgument, n, math.MaxInt32)
	}
	return int32(n), nil
}

// RWFromStream adapts a Go stream for SDL. Closing the RW, from either
// side, closes v.
func RWFromStream(v io.ReadSeekCloser) (*RW, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	a, err := nativebind.AdaptStreamLayout(v, layout)
	if err != nil {
		return nil, err
	}
	return &RW{Stream: a.Stream(), adapter: a}, nil
}

// RWFromReader adapts a read-only Go stream; Close does not close r.
func RWFromReader(r io.ReadSeeker) (*RW, error) {
	return RWFromStream(nativebind.NopCloser(r))
}

// Adapter returns the Go-side adapter, or nil for SDL-created streams.
func (rw *RW) Adapter() *nativebind.StreamAdapter { return rw.adapter }

// Close closes the stream through its close slot and releases any pinned
// memory.
func (rw *RW) Close() error {
	if rw.closed {
		return nativebind.ErrClosed
	}
	rw.closed = true
	defer rw.pinner.Unpin()
	if rw.adapter != nil && !rw.adapter.Active() {
		return nil
	}
	return rw.Stream.Close()
}

// Consumed marks the stream closed after a native call freed it, as the
// *_RW functions do when asked to.
func (rw *RW) Consumed() {
	rw.closed = true
	rw.pinner.Unpin()
}

// ReadU8 reads one byte.
func (rw *RW) ReadU8() uint8 { return sdlReadU8(rw.Ptr()) }

// ReadLE16 reads a little-endian uint16.
func (rw *RW) ReadLE16() uint16 { return sdlReadLE16(rw.Ptr()) }

// ReadBE16 reads a big-endian uint16.
func (rw *RW) ReadBE16() uint16 { return sdlReadBE16(rw.Ptr()) }

// ReadLE32 reads a little-endian uint32.
func (rw *RW) ReadLE32() uint32 { return sdlReadLE32(rw.Ptr()) }

// ReadBE32 reads a big-endian uint32.
func (rw *RW) ReadBE32() uint32 { return sdlReadBE32(rw.Ptr()) }

// ReadLE64 reads a little-endian uint64.
func (rw *RW) ReadLE64() uint64 { return sdlReadLE64(rw.Ptr()) }

// ReadBE64 reads a big-endian uint64.
func (rw *RW) ReadBE64() uint64 { return sdlReadBE64(rw.Ptr()) }

func written(symbol string, n uintptr) error {
	if n != 1 {
		return fmt.Errorf("%s: short write: %s", symbol, lastError())
	}
	return nil
}

// WriteU8 writes one byte.
func (rw *RW) WriteU8(v uint8) error { return written("SDL_WriteU8", sdlWriteU8(rw.Ptr(), v)) }

// WriteLE16 writes v little-endian.
func (rw *RW) WriteLE16(v uint16) error { return written("SDL_WriteLE16", sdlWriteLE16(rw.Ptr(), v)) }

// WriteBE16 writes v big-endian.
func (rw *RW) WriteBE16(v uint16) error { return written("SDL_WriteBE16", sdlWriteBE16(rw.Ptr(), v)) }

// WriteLE32 writes v little-endian.
func (rw *RW) WriteLE32(v uint32) error { return written("SDL_WriteLE32", sdlWriteLE32(rw.Ptr(), v)) }

// WriteBE32 writes v big-endian.
func (rw *RW) WriteBE32(v uint32) error { return written("SDL_WriteBE32", sdlWriteBE32(rw.Ptr(), v)) }

// WriteLE64 writes v little-endian.
func (rw *RW) WriteLE64(v uint64) error { return written("SDL_WriteLE64", sdlWriteLE64(rw.Ptr(), v)) }

// WriteBE64 writes v big-endian.
func (rw *RW) WriteBE64(v uint64) error { return written("SDL_WriteBE64", sdlWriteBE64(rw.Ptr(), v)) }

// AllocRW allocates an empty SDL_RWops record for callers that fill the
// slots themselves. Release it with FreeRW.
func AllocRW() (*nativebind.Stream, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	p := sdlAllocRW()
	if err := checkPtr("SDL_AllocRW", p); err != nil {
		return nil, err
	}
	return nativebind.StreamAt(p, layout), nil
}

// FreeRW releases a record from AllocRW.
func FreeRW(s *nativebind.Stream) {
	if s != nil && ensure() == nil {
		sdlFreeRW(s.Ptr())
	}
}
