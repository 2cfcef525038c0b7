package nativebind

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"
)

// Buffer describes one contiguous region owned by a native object.
type Buffer struct {
	Ptr      unsafe.Pointer
	ItemSize int // bytes per item: 1, 2 or 4
	Width    int // items per row
	Height   int // rows; 1 for a flat buffer
	Pitch    int // bytes per row; 0 means Width*ItemSize
	ReadOnly bool
}

// BufferSource is a native object exposing a raw buffer.
type BufferSource interface {
	Buffer() (Buffer, error)
}

// Locker is implemented by sources whose buffer is only valid while
// locked.
type Locker interface {
	MustLock() bool
	Lock() error
	Unlock()
}

// View gives indexed access to a source's buffer. If the source must be
// locked, the view holds the lock from construction until Close.
type View struct {
	src    BufferSource
	buf    Buffer
	data   []byte
	locker Locker

	mu     sync.Mutex
	closed bool
}

// NewView locks src if required and maps its buffer. The caller must
// Close the view; WithView does this on every exit path.
func NewView(src BufferSource) (*View, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil buffer source", ErrInvalidArgument)
	}
	v := &View{src: src}
	if l, ok := src.(Locker); ok && l.MustLock() {
		if err := l.Lock(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
		}
		v.locker = l
	}

	buf, err := src.Buffer()
	if err == nil {
		err = validateBuffer(&buf)
	}
	if err != nil {
		if v.locker != nil {
			v.locker.Unlock()
		}
		return nil, err
	}
	v.buf = buf
	v.data = unsafe.Slice((*byte)(buf.Ptr), buf.Pitch*buf.Height)
	return v, nil
}

// WithView runs fn with a view over src and releases it afterwards, also
// when fn panics.
func WithView(src BufferSource, fn func(*View) error) error {
	v, err := NewView(src)
	if err != nil {
		return err
	}
	defer v.Close()
	return fn(v)
}

func validateBuffer(b *Buffer) error {
	switch b.ItemSize {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: unsupported item size %d", ErrInvalidArgument, b.ItemSize)
	}
	if b.Ptr == nil {
		return fmt.Errorf("%w: nil buffer pointer", ErrInvalidArgument)
	}
	if b.Height == 0 {
		b.Height = 1
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative shape %dx%d", ErrInvalidArgument, b.Width, b.Height)
	}
	if b.Pitch == 0 {
		b.Pitch = b.Width * b.ItemSize
	}
	if b.Pitch < b.Width*b.ItemSize {
		return fmt.Errorf("%w: pitch %d shorter than row of %d items", ErrInvalidArgument, b.Pitch, b.Width)
	}
	return nil
}

// Close releases the source's lock, if one was taken. It is safe to call
// more than once.
func (v *View) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.data = nil
	if v.locker != nil {
		v.locker.Unlock()
	}
	return nil
}

// Source returns the object the view was built from.
func (v *View) Source() BufferSource { return v.src }

// ItemSize returns the bytes per item.
func (v *View) ItemSize() int { return v.buf.ItemSize }

// Dims returns the shape in items.
func (v *View) Dims() (width, height int) { return v.buf.Width, v.buf.Height }

// Len returns the number of items.
func (v *View) Len() int { return v.buf.Width * v.buf.Height }

// Pitch returns the bytes per row.
func (v *View) Pitch() int { return v.buf.Pitch }

// Bytes returns the whole region, including row padding.
func (v *View) Bytes() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	return v.data, nil
}

// Row returns the items of row y as raw bytes.
func (v *View) Row(y int) ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if y < 0 || y >= v.buf.Height {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, y, v.buf.Height)
	}
	off := y * v.buf.Pitch
	return v.data[off : off+v.buf.Width*v.buf.ItemSize], nil
}

// Get returns the item at column x, row y.
func (v *View) Get(x, y int) (uint32, error) {
	off, err := v.offset(x, y)
	if err != nil {
		return 0, err
	}
	return v.load(off), nil
}

// Set stores val at column x, row y, truncated to the item size.
func (v *View) Set(x, y int, val uint32) error {
	if err := v.check(); err != nil {
		return err
	}
	if v.buf.ReadOnly {
		return ErrReadOnly
	}
	off, err := v.offset(x, y)
	if err != nil {
		return err
	}
	v.store(off, val)
	return nil
}

// GetIndex returns the i-th item in row-major order.
func (v *View) GetIndex(i int) (uint32, error) {
	x, y, err := v.split(i)
	if err != nil {
		return 0, err
	}
	return v.Get(x, y)
}

// SetIndex stores val as the i-th item in row-major order.
func (v *View) SetIndex(i int, val uint32) error {
	x, y, err := v.split(i)
	if err != nil {
		return err
	}
	return v.Set(x, y, val)
}

func (v *View) split(i int) (x, y int, err error) {
	if i < 0 || i >= v.Len() {
		return 0, 0, fmt.Errorf("%w: index %d of %d", ErrOutOfBounds, i, v.Len())
	}
	return i % v.buf.Width, i / v.buf.Width, nil
}

func (v *View) check() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	return nil
}

func (v *View) offset(x, y int) (int, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	if x < 0 || x >= v.buf.Width || y < 0 || y >= v.buf.Height {
		return 0, fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfBounds, x, y, v.buf.Width, v.buf.Height)
	}
	return y*v.buf.Pitch + x*v.buf.ItemSize, nil
}

func (v *View) load(off int) uint32 {
	b := v.data[off : off+v.buf.ItemSize]
	switch v.buf.ItemSize {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.NativeEndian.Uint16(b))
	default:
		return binary.NativeEndian.Uint32(b)
	}
}

func (v *View) store(off int, val uint32) {
	b := v.data[off : off+v.buf.ItemSize]
	switch v.buf.ItemSize {
	case 1:
		b[0] = byte(val)
	case 2:
		binary.NativeEndian.PutUint16(b, uint16(val))
	default:
		binary.NativeEndian.PutUint32(b, val)
	}
}
