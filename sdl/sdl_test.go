package sdl

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/thesyncim/nativebind"
)

func requireSDL(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("SDL2 not available")
	}
}

// memFile is an in-memory read-write stream.
type memFile struct {
	data   []byte
	pos    int64
	closed bool
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + int64(len(p)); end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	n := copy(m.data[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		offset += m.pos
	case io.SeekEnd:
		offset += int64(len(m.data))
	}
	if offset < 0 {
		return 0, errors.New("negative offset")
	}
	m.pos = offset
	return offset, nil
}

func (m *memFile) Close() error {
	m.closed = true
	return nil
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		v    Version
		want nativebind.Layout
	}{
		{Version{1, 3, 0}, nativebind.LayoutClassic},
		{Version{2, 0, 0}, nativebind.LayoutSized},
		{Version{2, 30, 8}, nativebind.LayoutSized},
	}
	for _, tt := range tests {
		if got := layoutFor(tt.v); got != tt.want {
			t.Errorf("layoutFor(%s) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{2, 26, 3}
	tests := []struct {
		major, minor, patch uint8
		want                bool
	}{
		{2, 0, 0, true},
		{2, 26, 3, true},
		{2, 26, 4, false},
		{2, 27, 0, false},
		{3, 0, 0, false},
		{1, 99, 99, true},
	}
	for _, tt := range tests {
		if got := v.AtLeast(tt.major, tt.minor, tt.patch); got != tt.want {
			t.Errorf("%s.AtLeast(%d, %d, %d) = %v, want %v", v, tt.major, tt.minor, tt.patch, got, tt.want)
		}
	}
}

func TestUnavailableErrors(t *testing.T) {
	if Available() {
		t.Skip("SDL2 is available")
	}
	if err := Init(InitTimer); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Init error = %v, want ErrUnavailable", err)
	}
	if _, err := RWFromMem([]byte{1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("RWFromMem error = %v, want ErrUnavailable", err)
	}
	if GetError() != "" || WasInit(0) != 0 {
		t.Error("unavailable library reported state")
	}
}

func TestMemSize(t *testing.T) {
	tests := []struct {
		n       int64
		want    int32
		wantErr bool
	}{
		{1, 1, false},
		{math.MaxInt32, math.MaxInt32, false},
		{0, 0, true},
		{math.MaxInt32 + 1, 0, true},
		{1 << 33, 0, true},
	}
	for _, tt := range tests {
		got, err := memSize(tt.n)
		if tt.wantErr {
			if !errors.Is(err, nativebind.ErrInvalidArgument) {
				t.Errorf("memSize(%d) error = %v, want ErrInvalidArgument", tt.n, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("memSize(%d) = %d, %v, want %d", tt.n, got, err, tt.want)
		}
	}
}

func TestInitQuit(t *testing.T) {
	requireSDL(t)
	if err := Init(InitTimer); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Quit()
	if WasInit(InitTimer)&InitTimer == 0 {
		t.Error("timer subsystem not reported as initialised")
	}
	v, err := GetVersion()
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	t.Logf("SDL %s (%s) on %s, stream layout %s", v, GetRevision(), GetPlatform(), StreamLayout())
	if !v.AtLeast(2, 0, 0) {
		t.Errorf("version %s is older than 2.0.0", v)
	}
}

func TestGetErrorFromFailedCall(t *testing.T) {
	requireSDL(t)
	ClearError()
	_, err := RWFromFile(filepath.Join(t.TempDir(), "missing.bin"), "rb")
	var ce *nativebind.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("RWFromFile error = %v, want *nativebind.CallError", err)
	}
	if ce.Symbol != "SDL_RWFromFile" || ce.Msg == "" {
		t.Errorf("CallError = %+v", ce)
	}
}

func TestRWFromMemEndian(t *testing.T) {
	requireSDL(t)
	buf := make([]byte, 16)
	rw, err := RWFromMem(buf)
	if err != nil {
		t.Fatalf("RWFromMem: %v", err)
	}
	defer rw.Close()

	if err := rw.WriteLE32(0x11223344); err != nil {
		t.Fatalf("WriteLE32: %v", err)
	}
	if err := rw.WriteBE16(0xAABB); err != nil {
		t.Fatalf("WriteBE16: %v", err)
	}
	if err := rw.WriteU8(0x7F); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	want := []byte{0x44, 0x33, 0x22, 0x11, 0xAA, 0xBB, 0x7F}
	if !bytes.Equal(buf[:7], want) {
		t.Errorf("memory = % x, want % x", buf[:7], want)
	}

	if _, err := rw.Seek(0, nativebind.SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := rw.ReadBE32(); got != 0x44332211 {
		t.Errorf("ReadBE32 = %#x", got)
	}
	if got := rw.ReadLE16(); got != 0xBBAA {
		t.Errorf("ReadLE16 = %#x", got)
	}
	if got := rw.ReadU8(); got != 0x7F {
		t.Errorf("ReadU8 = %#x", got)
	}
}

func TestRWFromConstMemReadOnly(t *testing.T) {
	requireSDL(t)
	rw, err := RWFromConstMem([]byte("const"))
	if err != nil {
		t.Fatalf("RWFromConstMem: %v", err)
	}
	defer rw.Close()
	if _, err := rw.Write([]byte("x")); err == nil {
		t.Error("write to const memory succeeded")
	}
	got, err := io.ReadAll(rw)
	if err != nil || string(got) != "const" {
		t.Errorf("ReadAll = %q, %v", got, err)
	}
}

func TestRWFromStream(t *testing.T) {
	requireSDL(t)
	f := &memFile{}
	rw, err := RWFromStream(f)
	if err != nil {
		t.Fatalf("RWFromStream: %v", err)
	}
	if rw.Layout() != StreamLayout() {
		t.Errorf("Layout = %s, want %s", rw.Layout(), StreamLayout())
	}

	// SDL's endian helpers drive the adapted record through its slots.
	if err := rw.WriteLE64(0x0102030405060708); err != nil {
		t.Fatalf("WriteLE64: %v", err)
	}
	if !bytes.Equal(f.data, []byte{8, 7, 6, 5, 4, 3, 2, 1}) {
		t.Errorf("stream holds % x", f.data)
	}
	if _, err := rw.Seek(0, nativebind.SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := rw.ReadBE64(); got != 0x0807060504030201 {
		t.Errorf("ReadBE64 = %#x", got)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !f.closed {
		t.Error("Close did not reach the Go stream")
	}
	if err := rw.Close(); !errors.Is(err, nativebind.ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

func newTestSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := CreateRGBSurface(w, h, 32, 0x00FF0000, 0x0000FF00, 0x000000FF, 0xFF000000)
	if err != nil {
		t.Fatalf("CreateRGBSurface: %v", err)
	}
	t.Cleanup(s.Free)
	return s
}

func TestSurfaceView(t *testing.T) {
	requireSDL(t)
	s := newTestSurface(t, 4, 3)
	if w, h := s.Size(); w != 4 || h != 3 {
		t.Fatalf("Size = %dx%d", w, h)
	}
	if s.BytesPerPixel() != 4 || s.BitsPerPixel() != 32 {
		t.Errorf("format = %d bpp / %d bytes", s.BitsPerPixel(), s.BytesPerPixel())
	}
	red := s.MapRGBA(255, 0, 0, 255)
	if err := s.FillRect(&Rect{X: 1, Y: 1, W: 2, H: 1}, red); err != nil {
		t.Fatalf("FillRect: %v", err)
	}

	err := nativebind.WithView(s, func(v *nativebind.View) error {
		for _, tt := range []struct {
			x, y int
			want uint32
		}{
			{0, 0, 0},
			{1, 1, red},
			{2, 1, red},
			{3, 1, 0},
		} {
			got, err := v.Get(tt.x, tt.y)
			if err != nil {
				return err
			}
			if got != tt.want {
				t.Errorf("pixel (%d, %d) = %#x, want %#x", tt.x, tt.y, got, tt.want)
			}
		}
		return v.Set(0, 2, 0x80402010)
	})
	if err != nil {
		t.Fatalf("WithView: %v", err)
	}
	if s.MustLock() {
		t.Error("plain surface reports MustLock")
	}
}

func TestBMPRoundTripThroughAdaptedStream(t *testing.T) {
	requireSDL(t)
	src := newTestSurface(t, 5, 2)
	color := src.MapRGBA(10, 20, 30, 255)
	if err := src.FillRect(nil, color); err != nil {
		t.Fatalf("FillRect: %v", err)
	}

	f := &memFile{}
	dst, err := RWFromStream(f)
	if err != nil {
		t.Fatalf("RWFromStream: %v", err)
	}
	if err := src.SaveBMPRW(dst, true); err != nil {
		t.Fatalf("SaveBMPRW: %v", err)
	}
	if !f.closed {
		t.Error("SDL did not close the destination stream")
	}
	if dst.Adapter().Active() {
		t.Error("adapter still registered after SDL closed it")
	}
	if !bytes.HasPrefix(f.data, []byte("BM")) {
		t.Fatalf("encoded data does not start with BM: % x", f.data[:min(len(f.data), 8)])
	}

	in, err := RWFromReader(bytes.NewReader(f.data))
	if err != nil {
		t.Fatalf("RWFromReader: %v", err)
	}
	loaded, err := LoadBMPRW(in, true)
	if err != nil {
		t.Fatalf("LoadBMPRW: %v", err)
	}
	defer loaded.Free()

	if w, h := loaded.Size(); w != 5 || h != 2 {
		t.Fatalf("loaded size = %dx%d, want 5x2", w, h)
	}
	want := loaded.MapRGBA(10, 20, 30, 255)
	err = nativebind.WithView(loaded, func(v *nativebind.View) error {
		got, err := v.Get(4, 1)
		if err != nil {
			return err
		}
		if got != want {
			t.Errorf("loaded pixel = %#x, want %#x", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithView: %v", err)
	}
}

func TestSaveLoadBMPFile(t *testing.T) {
	requireSDL(t)
	path := filepath.Join(t.TempDir(), "out.bmp")
	s := newTestSurface(t, 3, 3)
	if err := s.SaveBMP(path); err != nil {
		t.Fatalf("SaveBMP: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("stat %s: %v", path, err)
	}
	loaded, err := LoadBMP(path)
	if err != nil {
		t.Fatalf("LoadBMP: %v", err)
	}
	defer loaded.Free()
	if w, h := loaded.Size(); w != 3 || h != 3 {
		t.Errorf("loaded size = %dx%d", w, h)
	}
}
