package nativebind

import (
	"fmt"
	"io"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Whence values of the native stream ABI. They match io.SeekStart,
// io.SeekCurrent and io.SeekEnd.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Stream types stored in the record's type tag.
const (
	RWTypeUnknown  = 0
	RWTypeWinFile  = 1
	RWTypeStdFile  = 2
	RWTypeJNIFile  = 3
	RWTypeMemory   = 4
	RWTypeMemoryRO = 5
)

// Layout selects the shape of a native stream record.
type Layout uint8

const (
	// LayoutClassic has four slots: seek, read, write, close.
	LayoutClassic Layout = iota
	// LayoutSized puts a size slot before the four classic slots, as
	// released SDL 2.0 headers do.
	LayoutSized
)

func (l Layout) String() string {
	switch l {
	case LayoutClassic:
		return "classic"
	case LayoutSized:
		return "sized"
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// RWops is the classic native stream record: four callback slots followed
// by a type tag and the implementation's private union.
//
//	int64  (*seek)(RWops *ctx, int64 offset, int whence);
//	size_t (*read)(RWops *ctx, void *dst, size_t size, size_t maxnum);
//	size_t (*write)(RWops *ctx, const void *src, size_t size, size_t num);
//	int    (*close)(RWops *ctx);
type RWops struct {
	SeekFn  uintptr
	ReadFn  uintptr
	WriteFn uintptr
	CloseFn uintptr
	Type    uint32
	_       uint32
	Hidden  [5]uintptr
}

// SizedRWops is the LayoutSized record.
//
//	int64 (*size)(RWops *ctx);
type SizedRWops struct {
	SizeFn  uintptr
	SeekFn  uintptr
	ReadFn  uintptr
	WriteFn uintptr
	CloseFn uintptr
	Type    uint32
	_       uint32
	Hidden  [5]uintptr
}

// Slot indexes within a LayoutClassic record.
const (
	slotSeek = iota
	slotRead
	slotWrite
	slotClose
)

// Stream calls through a native stream record, either one returned by a
// native library or one built by AdaptStream. It implements
// io.ReadWriteSeeker and io.Closer.
type Stream struct {
	ptr    uintptr
	layout Layout
}

// StreamAt wraps the record at ptr. It returns nil for a null pointer.
func StreamAt(ptr uintptr, layout Layout) *Stream {
	if ptr == 0 {
		return nil
	}
	return &Stream{ptr: ptr, layout: layout}
}

// Ptr returns the record address to hand to native code.
func (s *Stream) Ptr() uintptr { return s.ptr }

// Layout returns the record shape.
func (s *Stream) Layout() Layout { return s.layout }

func (s *Stream) slot(i int) uintptr {
	if s.layout == LayoutSized {
		i++
	}
	return *(*uintptr)(unsafe.Add(unsafe.Pointer(s.ptr), i*int(unsafe.Sizeof(uintptr(0)))))
}

// TypeTag returns the record's type tag.
func (s *Stream) TypeTag() uint32 {
	n := 4
	if s.layout == LayoutSized {
		n = 5
	}
	return *(*uint32)(unsafe.Add(unsafe.Pointer(s.ptr), n*int(unsafe.Sizeof(uintptr(0)))))
}

// CallSize invokes the size slot. It returns -1 on failure or when the
// layout has no size slot.
func (s *Stream) CallSize() int64 {
	if s.layout != LayoutSized {
		return -1
	}
	fn := *(*uintptr)(unsafe.Pointer(s.ptr))
	if fn == 0 {
		return -1
	}
	r1, _, _ := purego.SyscallN(fn, s.ptr)
	return int64(r1)
}

// CallSeek invokes the seek slot. It returns the new offset or a negative
// value on failure.
func (s *Stream) CallSeek(offset int64, whence int) int64 {
	fn := s.slot(slotSeek)
	if fn == 0 {
		return -1
	}
	r1, _, _ := purego.SyscallN(fn, s.ptr, uintptr(offset), uintptr(whence))
	return int64(r1)
}

// CallRead invokes the read slot and returns the number of elements read.
func (s *Stream) CallRead(dst unsafe.Pointer, size, maxnum uint) uint {
	fn := s.slot(slotRead)
	if fn == 0 {
		return 0
	}
	r1, _, _ := purego.SyscallN(fn, s.ptr, uintptr(dst), uintptr(size), uintptr(maxnum))
	return uint(r1)
}

// CallWrite invokes the write slot and returns the number of elements
// written.
func (s *Stream) CallWrite(src unsafe.Pointer, size, num uint) uint {
	fn := s.slot(slotWrite)
	if fn == 0 {
		return 0
	}
	r1, _, _ := purego.SyscallN(fn, s.ptr, uintptr(src), uintptr(size), uintptr(num))
	return uint(r1)
}

// CallClose invokes the close slot. It returns 0 on success.
func (s *Stream) CallClose() int32 {
	fn := s.slot(slotClose)
	if fn == 0 {
		return -1
	}
	r1, _, _ := purego.SyscallN(fn, s.ptr)
	return int32(r1)
}

// Size returns the stream length reported by the size slot.
func (s *Stream) Size() (int64, error) {
	n := s.CallSize()
	if n < 0 {
		return 0, fmt.Errorf("nativebind: rwops size unavailable")
	}
	return n, nil
}

// Seek implements io.Seeker over the record.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	pos := s.CallSeek(offset, whence)
	if pos < 0 {
		return 0, fmt.Errorf("nativebind: rwops seek(%d, %d) failed", offset, whence)
	}
	return pos, nil
}

// Tell returns the current offset.
func (s *Stream) Tell() (int64, error) {
	return s.Seek(0, SeekCur)
}

// Read implements io.Reader over the record. The ABI cannot distinguish
// errors from end of stream, so a zero-element read reports io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	n := s.CallRead(unsafe.Pointer(&buf[0]), 1, uint(len(buf)))
	if n == 0 {
		return 0, io.EOF
	}
	return copy(p, buf[:n]), nil
}

// Write implements io.Writer over the record.
func (s *Stream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	n := int(s.CallWrite(unsafe.Pointer(&buf[0]), 1, uint(len(buf))))
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Close invokes the close slot. For native records this usually frees the
// record itself; s must not be used afterwards.
func (s *Stream) Close() error {
	if s.CallClose() != 0 {
		return fmt.Errorf("nativebind: rwops close failed")
	}
	return nil
}
