// Package sdlttf wraps SDL2_ttf. Fonts open from files, sdl.RW streams or
// any Go io.ReadSeeker, and text renders into sdl.Surface values.
package sdlttf

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/thesyncim/nativebind"
	"github.com/thesyncim/nativebind/sdl"
)

// LibraryName is the logical name SDL2_ttf is registered under.
const LibraryName = "SDL2_ttf"

// Candidates are the file stems tried for SDL2_ttf.
var Candidates = nativebind.Stems("SDL2_ttf", "SDL2_ttf-2.0")

// Font styles, combinable with |.
const (
	StyleNormal        = 0x00
	StyleBold          = 0x01
	StyleItalic        = 0x02
	StyleUnderline     = 0x04
	StyleStrikethrough = 0x08
)

// Hinting modes.
const (
	HintingNormal = 0
	HintingLight  = 1
	HintingMono   = 2
	HintingNone   = 3
)

// ErrUnavailable is returned when SDL2_ttf could not be loaded.
var ErrUnavailable = errors.New("sdlttf: SDL2_ttf not available")

var (
	loadOnce sync.Once
	loadErr  error
)

var (
	ttfInit            func() int32
	ttfQuit            func()
	ttfWasInit         func() int32
	ttfOpenFont        func(file string, ptsize int32) uintptr
	ttfOpenFontIndex   func(file string, ptsize int32, index int64) uintptr
	ttfOpenFontIndexRW func(src uintptr, freesrc, ptsize int32, index int64) uintptr
	ttfCloseFont       func(font uintptr)

	ttfGetFontStyle   func(font uintptr) int32
	ttfSetFontStyle   func(font uintptr, style int32)
	ttfGetFontOutline func(font uintptr) int32
	ttfSetFontOutline func(font uintptr, outline int32)
	ttfGetFontHinting func(font uintptr) int32
	ttfSetFontHinting func(font uintptr, hinting int32)
	ttfGetFontKerning func(font uintptr) int32
	ttfSetFontKerning func(font uintptr, allowed int32)

	ttfFontHeight           func(font uintptr) int32
	ttfFontAscent           func(font uintptr) int32
	ttfFontDescent          func(font uintptr) int32
	ttfFontLineSkip         func(font uintptr) int32
	ttfFontFaces            func(font uintptr) int32
	ttfFontFaceIsFixedWidth func(font uintptr) int32
	ttfFontFaceFamilyName   func(font uintptr) uintptr
	ttfFontFaceStyleName    func(font uintptr) uintptr
	ttfGlyphIsProvided      func(font uintptr, ch uint16) int32
	ttfGlyphMetrics         func(font uintptr, ch uint16, minx, maxx, miny, maxy, advance *int32) int32
	ttfSizeUTF8             func(font uintptr, text string, w, h *int32) int32
	ttfRenderUTF8Solid      func(font uintptr, text string, fg uint32) uintptr
	ttfRenderUTF8Shaded     func(font uintptr, text string, fg, bg uint32) uintptr
	ttfRenderUTF8Blended    func(font uintptr, text string, fg uint32) uintptr
)

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
		str = nativebind.String
		i32 = nativebind.Int32
		i64 = nativebind.Int64
		u16 = nativebind.Uint16
		u32 = nativebind.Uint32
		v   = nativebind.Void
	)
	sig := nativebind.Sig
	return nativebind.BindAll(l,
		nativebind.Fn(&ttfInit, sig("TTF_Init", i32)),
		nativebind.Fn(&ttfQuit, sig("TTF_Quit", v)),
		nativebind.Fn(&ttfWasInit, sig("TTF_WasInit", i32)),
		nativebind.Fn(&ttfOpenFont, sig("TTF_OpenFont", ptr, str, i32)),
		nativebind.Fn(&ttfOpenFontIndex, sig("TTF_OpenFontIndex", ptr, str, i32, i64)),
		nativebind.Fn(&ttfOpenFontIndexRW, sig("TTF_OpenFontIndexRW", ptr, ptr, i32, i32, i64)),
		nativebind.Fn(&ttfCloseFont, sig("TTF_CloseFont", v, ptr)),

		nativebind.Fn(&ttfGetFontStyle, sig("TTF_GetFontStyle", i32, ptr)),
		nativebind.Fn(&ttfSetFontStyle, sig("TTF_SetFontStyle", v, ptr, i32)),
		nativebind.Fn(&ttfGetFontOutline, sig("TTF_GetFontOutline", i32, ptr)),
		nativebind.Fn(&ttfSetFontOutline, sig("TTF_SetFontOutline", v, ptr, i32)),
		nativebind.Fn(&ttfGetFontHinting, sig("TTF_GetFontHinting", i32, ptr)),
		nativebind.Fn(&ttfSetFontHinting, sig("TTF_SetFontHinting", v, ptr, i32)),
		nativebind.Fn(&ttfGetFontKerning, sig("TTF_GetFontKerning", i32, ptr)),
		nativebind.Fn(&ttfSetFontKerning, sig("TTF_SetFontKerning", v, ptr, i32)),

		nativebind.Fn(&ttfFontHeight, sig("TTF_FontHeight", i32, ptr)),
		nativebind.Fn(&ttfFontAscent, sig("TTF_FontAscent", i32, ptr)),
		nativebind.Fn(&ttfFontDescent, sig("TTF_FontDescent", i32, ptr)),
		nativebind.Fn(&ttfFontLineSkip, sig("TTF_FontLineSkip", i32, ptr)),
		nativebind.Fn(&ttfFontFaces, sig("TTF_FontFaces", i32, ptr)),
		nativebind.Fn(&ttfFontFaceIsFixedWidth, sig("TTF_FontFaceIsFixedWidth", i32, ptr)),
		nativebind.Fn(&ttfFontFaceFamilyName, sig("TTF_FontFaceFamilyName", ptr, ptr)),
		nativebind.Fn(&ttfFontFaceStyleName, sig("TTF_FontFaceStyleName", ptr, ptr)),
		nativebind.Fn(&ttfGlyphIsProvided, sig("TTF_GlyphIsProvided", i32, ptr, u16)),
		nativebind.Fn(&ttfGlyphMetrics, sig("TTF_GlyphMetrics", i32, ptr, u16, ptr, ptr, ptr, ptr, ptr)),
		nativebind.Fn(&ttfSizeUTF8, sig("TTF_SizeUTF8", i32, ptr, str, ptr, ptr)),
		nativebind.Fn(&ttfRenderUTF8Solid, sig("TTF_RenderUTF8_Solid", ptr, ptr, str, u32)),
		nativebind.Fn(&ttfRenderUTF8Shaded, sig("TTF_RenderUTF8_Shaded", ptr, ptr, str, u32, u32)),
		nativebind.Fn(&ttfRenderUTF8Blended, sig("TTF_RenderUTF8_Blended", ptr, ptr, str, u32)),
	)
}

func ensure() error {
	if err := load(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Available reports whether SDL2_ttf was found and all bindings resolved.
func Available() bool {
	return load() == nil
}

// Init initialises the font engine.
func Init() error {
	if err := ensure(); err != nil {
		return err
	}
	return nativebind.CheckCode("TTF_Init", int64(ttfInit()), sdl.GetError)
}

// Quit shuts the font engine down.
func Quit() {
	if ensure() == nil {
		ttfQuit()
	}
}

// WasInit reports whether Init has been called more often than Quit.
func WasInit() bool {
	return ensure() == nil && ttfWasInit() > 0
}

// Color is SDL_Color.
type Color struct {
	R, G, B, A uint8
}

// pack returns c as the register word that carries an SDL_Color passed by
// value.
func (c Color) pack() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// Font is an open TTF_Font.
type Font struct {
	ptr uintptr
	src *sdl.RW
}

// OpenFont opens the font file at path at ptsize points.
func OpenFont(path string, ptsize int) (*Font, error) {
	return OpenFontIndex(path, ptsize, 0)
}

// OpenFontIndex opens face index of the font file at path.
func OpenFontIndex(path string, ptsize, index int) (*Font, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: face index %d", nativebind.ErrInvalidArgument, index)
	}
	p := ttfOpenFontIndex(path, int32(ptsize), int64(index))
	if err := nativebind.CheckPointer("TTF_OpenFontIndex", p, sdl.GetError); err != nil {
		return nil, err
	}
	return &Font{ptr: p}, nil
}

// OpenFontRW opens a font from src. SDL2_ttf reads glyphs from src for as
// long as the font is open, so src must stay open until Close. With
// freesrc the font owns src and closes it on Close, or right away if
// opening fails.
func OpenFontRW(src *sdl.RW, freesrc bool, ptsize int) (*Font, error) {
	return OpenFontIndexRW(src, freesrc, ptsize, 0)
}

// OpenFontIndexRW is OpenFontRW for face index.
func OpenFontIndexRW(src *sdl.RW, freesrc bool, ptsize, index int) (*Font, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: face index %d", nativebind.ErrInvalidArgument, index)
	}
	free := int32(0)
	if freesrc {
		free = 1
	}
	p := ttfOpenFontIndexRW(src.Ptr(), free, int32(ptsize), int64(index))
	if err := nativebind.CheckPointer("TTF_OpenFontIndexRW", p, sdl.GetError); err != nil {
		if freesrc {
			src.Consumed()
		}
		return nil, err
	}
	f := &Font{ptr: p}
	if freesrc {
		f.src = src
	}
	return f, nil
}

// OpenFontReader opens a font read from r. r is left open and must not be
// used elsewhere until the font is closed.
func OpenFontReader(r io.ReadSeeker, ptsize int) (*Font, error) {
	if err := ensure(); err != nil {
		return nil, err
	}
	rw, err := sdl.RWFromReader(r)
	if err != nil {
		return nil, err
	}
	return OpenFontRW(rw, true, ptsize)
}

// Close releases the font and any stream it owns. It is safe to call more
// than once.
func (f *Font) Close() {
	if f == nil || f.ptr == 0 {
		return
	}
	ttfCloseFont(f.ptr)
	f.ptr = 0
	if f.src != nil {
		f.src.Consumed()
		f.src = nil
	}
}

// Style returns the StyleXxx flags in effect.
func (f *Font) Style() int { return int(ttfGetFontStyle(f.ptr)) }

// SetStyle sets the StyleXxx flags.
func (f *Font) SetStyle(style int) { ttfSetFontStyle(f.ptr, int32(style)) }

// Outline returns the outline width in pixels.
func (f *Font) Outline() int { return int(ttfGetFontOutline(f.ptr)) }

// SetOutline sets the outline width in pixels; zero disables it.
func (f *Font) SetOutline(px int) error {
	if px < 0 {
		return fmt.Errorf("%w: outline %d", nativebind.ErrInvalidArgument, px)
	}
	ttfSetFontOutline(f.ptr, int32(px))
	return nil
}

// Hinting returns the HintingXxx mode.
func (f *Font) Hinting() int { return int(ttfGetFontHinting(f.ptr)) }

// SetHinting sets the HintingXxx mode.
func (f *Font) SetHinting(mode int) error {
	if mode < HintingNormal || mode > HintingNone {
		return fmt.Errorf("%w: hinting %d", nativebind.ErrInvalidArgument, mode)
	}
	ttfSetFontHinting(f.ptr, int32(mode))
	return nil
}

// Kerning reports whether kerning is enabled.
func (f *Font) Kerning() bool { return ttfGetFontKerning(f.ptr) != 0 }

// SetKerning enables or disables kerning.
func (f *Font) SetKerning(on bool) {
	allowed := int32(0)
	if on {
		allowed = 1
	}
	ttfSetFontKerning(f.ptr, allowed)
}

// Height returns the maximum glyph height.
func (f *Font) Height() int { return int(ttfFontHeight(f.ptr)) }

// Ascent returns the maximum distance above the baseline.
func (f *Font) Ascent() int { return int(ttfFontAscent(f.ptr)) }

// Descent returns the maximum distance below the baseline, as a negative
// number.
func (f *Font) Descent() int { return int(ttfFontDescent(f.ptr)) }

// LineSkip returns the recommended line spacing.
func (f *Font) LineSkip() int { return int(ttfFontLineSkip(f.ptr)) }

// Faces returns the number of faces in the font file.
func (f *Font) Faces() int { return int(ttfFontFaces(f.ptr)) }

// FixedWidth reports whether the current face is monospaced.
func (f *Font) FixedWidth() bool { return ttfFontFaceIsFixedWidth(f.ptr) != 0 }

// FamilyName returns the face's family name, or "" if it has none.
func (f *Font) FamilyName() string { return nativebind.GoString(ttfFontFaceFamilyName(f.ptr)) }

// StyleName returns the face's style name, or "" if it has none.
func (f *Font) StyleName() string { return nativebind.GoString(ttfFontFaceStyleName(f.ptr)) }

// GlyphIndex returns the glyph index for ch, or 0 if the font has none.
// Only the basic multilingual plane is addressable.
func (f *Font) GlyphIndex(ch rune) int {
	if ch < 0 || ch > 0xFFFF {
		return 0
	}
	return int(ttfGlyphIsProvided(f.ptr, uint16(ch)))
}

// GlyphMetrics describes one glyph.
type GlyphMetrics struct {
	MinX, MaxX, MinY, MaxY, Advance int
}

// Metrics returns the metrics of ch.
func (f *Font) Metrics(ch rune) (GlyphMetrics, error) {
	if ch < 0 || ch > 0xFFFF {
		return GlyphMetrics{}, fmt.Errorf("%w: rune %U outside the BMP", nativebind.ErrInvalidArgument, ch)
	}
	var minx, maxx, miny, maxy, adv int32
	if err := nativebind.CheckCode("TTF_GlyphMetrics",
		int64(ttfGlyphMetrics(f.ptr, uint16(ch), &minx, &maxx, &miny, &maxy, &adv)), sdl.GetError); err != nil {
		return GlyphMetrics{}, err
	}
	return GlyphMetrics{int(minx), int(maxx), int(miny), int(maxy), int(adv)}, nil
}

// Size returns the dimensions text would render at.
func (f *Font) Size(text string) (w, h int, err error) {
	var cw, ch int32
	if err := nativebind.CheckCode("TTF_SizeUTF8", int64(ttfSizeUTF8(f.ptr, text, &cw, &ch)), sdl.GetError); err != nil {
		return 0, 0, err
	}
	return int(cw), int(ch), nil
}

func rendered(symbol string, p uintptr) (*sdl.Surface, error) {
	if err := nativebind.CheckPointer(symbol, p, sdl.GetError); err != nil {
		return nil, err
	}
	return sdl.SurfaceAt(p), nil
}

// RenderSolid renders text quickly onto an 8-bit palettized surface.
func (f *Font) RenderSolid(text string, fg Color) (*sdl.Surface, error) {
	return rendered("TTF_RenderUTF8_Solid", ttfRenderUTF8Solid(f.ptr, text, fg.pack()))
}

// RenderShaded renders antialiased text over bg onto an 8-bit palettized
// surface.
func (f *Font) RenderShaded(text string, fg, bg Color) (*sdl.Surface, error) {
	return rendered("TTF_RenderUTF8_Shaded", ttfRenderUTF8Shaded(f.ptr, text, fg.pack(), bg.pack()))
}

// RenderBlended renders alpha-blended text onto a 32-bit ARGB surface.
func (f *Font) RenderBlended(text string, fg Color) (*sdl.Surface, error) {
	return rendered("TTF_RenderUTF8_Blended", ttfRenderUTF8Blended(f.ptr, text, fg.pack()))
}
