package nativebind

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Teller is implemented by streams that can report their position
// separately from Seek.
type Teller interface {
	Tell() (int64, error)
}

// Sizer is implemented by streams that know their total length.
type Sizer interface {
	Size() int64
}

// Sentinels returned by the trampolines. The ABI reads them as int64 for
// seek and size, and as int for close.
const (
	seekFailed  = ^uintptr(0)
	closeFailed = ^uintptr(0)
)

// Process-wide trampolines. purego callbacks are never freed, so one set
// serves every adapter and the record address selects the Go state.
var (
	trampolineOnce  sync.Once
	sizeTrampoline  uintptr
	seekTrampoline  uintptr
	readTrampoline  uintptr
	writeTrampoline uintptr
	noWrite         uintptr
	closeTrampoline uintptr

	streamsMu sync.RWMutex
	streams   = make(map[uintptr]*StreamAdapter)
)

func initTrampolines() {
	trampolineOnce.Do(func() {
		sizeTrampoline = purego.NewCallback(rwSize)
		seekTrampoline = purego.NewCallback(rwSeek)
		readTrampoline = purego.NewCallback(rwRead)
		writeTrampoline = purego.NewCallback(rwWrite)
		noWrite = purego.NewCallback(rwNoWrite)
		closeTrampoline = purego.NewCallback(rwClose)
	})
}

// StreamAdapter exposes a Go stream to native code through a stream
// record. The adapter, its record and the wrapped value form one unit that
// stays registered until the stream is closed (by either side) or freed,
// so the record remains valid for native callers even if every other Go
// reference to the value is dropped.
//
// The wrapped value is called on whatever thread the native library uses
// to drive the stream, one call at a time.
type StreamAdapter struct {
	record any // *RWops or *SizedRWops
	stream *Stream
	value  io.ReadSeekCloser
	writer io.Writer
	pinner runtime.Pinner

	mu       sync.Mutex
	released bool
}

// AdaptStream builds a LayoutClassic record over v. The write slot is
// live only when v implements io.Writer; otherwise native writes report
// zero elements.
func AdaptStream(v io.ReadSeekCloser) (*StreamAdapter, error) {
	return AdaptStreamLayout(v, LayoutClassic)
}

// AdaptStreamLayout is AdaptStream for an explicit record layout.
func AdaptStreamLayout(v io.ReadSeekCloser, layout Layout) (*StreamAdapter, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil stream", ErrInvalidArgument)
	}
	initTrampolines()

	a := &StreamAdapter{value: v}
	write := noWrite
	if w, ok := v.(io.Writer); ok {
		a.writer = w
		write = writeTrampoline
	}

	var ptr uintptr
	switch layout {
	case LayoutClassic:
		rw := &RWops{
			SeekFn:  seekTrampoline,
			ReadFn:  readTrampoline,
			WriteFn: write,
			CloseFn: closeTrampoline,
			Type:    RWTypeUnknown,
		}
		a.pinner.Pin(rw)
		a.record, ptr = rw, uintptr(unsafe.Pointer(rw))
	case LayoutSized:
		rw := &SizedRWops{
			SizeFn:  sizeTrampoline,
			SeekFn:  seekTrampoline,
			ReadFn:  readTrampoline,
			WriteFn: write,
			CloseFn: closeTrampoline,
			Type:    RWTypeUnknown,
		}
		a.pinner.Pin(rw)
		a.record, ptr = rw, uintptr(unsafe.Pointer(rw))
	default:
		return nil, fmt.Errorf("%w: layout %s", ErrInvalidArgument, layout)
	}
	a.stream = &Stream{ptr: ptr, layout: layout}

	streamsMu.Lock()
	streams[ptr] = a
	streamsMu.Unlock()
	return a, nil
}

// Stream returns the native side of the record, for calling through it
// from Go.
func (a *StreamAdapter) Stream() *Stream { return a.stream }

// Ptr returns the record address to pass to native code.
func (a *StreamAdapter) Ptr() uintptr { return a.stream.ptr }

// Layout returns the record shape.
func (a *StreamAdapter) Layout() Layout { return a.stream.layout }

// Value returns the wrapped stream.
func (a *StreamAdapter) Value() io.ReadSeekCloser { return a.value }

// Writable reports whether native writes reach the wrapped value.
func (a *StreamAdapter) Writable() bool { return a.writer != nil }

// Active reports whether the record is still registered.
func (a *StreamAdapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.released
}

// Close closes the wrapped value and releases the record. It returns
// ErrClosed if native code already closed the stream.
func (a *StreamAdapter) Close() error {
	if !a.release() {
		return ErrClosed
	}
	return a.value.Close()
}

// Free releases the record without closing the wrapped value, for native
// APIs that take ownership semantics the caller does not want.
func (a *StreamAdapter) Free() {
	a.release()
}

func (a *StreamAdapter) release() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.released = true
	streamsMu.Lock()
	delete(streams, a.stream.ptr)
	streamsMu.Unlock()
	a.pinner.Unpin()
	return true
}

func (a *StreamAdapter) size() (int64, error) {
	if s, ok := a.value.(Sizer); ok {
		return s.Size(), nil
	}
	cur, err := a.seek(0, SeekCur)
	if err != nil {
		return 0, err
	}
	end, err := a.seek(0, SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := a.seek(cur, SeekSet); err != nil {
		log().Debugf("rwops size: restore position %d: %v", cur, err)
		return 0, err
	}
	return end, nil
}

func (a *StreamAdapter) seek(offset int64, whence int) (int64, error) {
	if whence != SeekSet && whence != SeekCur && whence != SeekEnd {
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}
	pos, err := a.value.Seek(offset, whence)
	if errors.Is(err, ErrPositionUnknown) {
		if t, ok := a.value.(Teller); ok {
			pos, err = t.Tell()
		} else {
			pos, err = a.value.Seek(0, io.SeekCurrent)
		}
	}
	if err != nil {
		return 0, err
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, pos)
	}
	return pos, nil
}

func lookupStream(ctx uintptr) *StreamAdapter {
	streamsMu.RLock()
	defer streamsMu.RUnlock()
	return streams[ctx]
}

// recoverTrampoline stops a panic from unwinding into the native frame.
func recoverTrampoline(op string, ret *uintptr, sentinel uintptr) {
	if r := recover(); r != nil {
		log().Errorf("rwops %s: recovered panic: %v", op, r)
		*ret = sentinel
	}
}

func rwSize(ctx uintptr) (ret uintptr) {
	ret = seekFailed
	defer recoverTrampoline("size", &ret, seekFailed)

	a := lookupStream(ctx)
	if a == nil {
		return seekFailed
	}
	n, err := a.size()
	if err != nil {
		log().Debugf("rwops size: %v", err)
		return seekFailed
	}
	return uintptr(n)
}

func rwSeek(ctx uintptr, offset int64, whence int32) (ret uintptr) {
	ret = seekFailed
	defer recoverTrampoline("seek", &ret, seekFailed)

	a := lookupStream(ctx)
	if a == nil {
		return seekFailed
	}
	pos, err := a.seek(offset, int(whence))
	if err != nil {
		log().Debugf("rwops seek(%d, %d): %v", offset, whence, err)
		return seekFailed
	}
	return uintptr(pos)
}

func rwRead(ctx, dst, size, maxnum uintptr) (ret uintptr) {
	defer recoverTrampoline("read", &ret, 0)

	a := lookupStream(ctx)
	if a == nil || dst == 0 || size == 0 || maxnum == 0 {
		return 0
	}
	if maxnum > uintptr(math.MaxInt)/size {
		return 0
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size*maxnum)
	n, err := fill(a.value, buf)
	switch {
	case err == nil:
		return maxnum
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrNoProgress):
		// Short read: report whole elements only.
		return uintptr(n) / size
	default:
		log().Debugf("rwops read(%d x %d): %v", size, maxnum, err)
		return 0
	}
}

// maxEmptyReads bounds consecutive (0, nil) reads before fill gives up.
const maxEmptyReads = 100

// fill reads into buf until it is full, the reader fails, or the reader
// stops making progress.
func fill(r io.Reader, buf []byte) (int, error) {
	var n, empty int
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxEmptyReads {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}

func rwWrite(ctx, src, size, num uintptr) (ret uintptr) {
	defer recoverTrampoline("write", &ret, 0)

	a := lookupStream(ctx)
	if a == nil || a.writer == nil || src == 0 || size == 0 || num == 0 {
		return 0
	}
	if num > uintptr(math.MaxInt)/size {
		return 0
	}
	data := make([]byte, size*num)
	copy(data, unsafe.Slice((*byte)(unsafe.Pointer(src)), size*num))
	n, err := a.writer.Write(data)
	if err != nil {
		log().Debugf("rwops write(%d x %d): %v", size, num, err)
		return 0
	}
	return uintptr(n) / size
}

func rwNoWrite(ctx, src, size, num uintptr) uintptr {
	return 0
}

func rwClose(ctx uintptr) (ret uintptr) {
	ret = closeFailed
	defer recoverTrampoline("close", &ret, closeFailed)

	a := lookupStream(ctx)
	if a == nil {
		return closeFailed
	}
	defer a.release()
	if err := a.value.Close(); err != nil {
		log().Debugf("rwops close: %v", err)
		return closeFailed
	}
	return 0
}

// NopCloser wraps rs with a no-op Close, keeping Write when rs has it.
func NopCloser(rs io.ReadSeeker) io.ReadSeekCloser {
	if rws, ok := rs.(io.ReadWriteSeeker); ok {
		return nopWriteCloser{rws}
	}
	return nopCloser{rs}
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

type nopWriteCloser struct{ io.ReadWriteSeeker }

func (nopWriteCloser) Close() error { return nil }
