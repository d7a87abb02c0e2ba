// Package glyph rasterizes runes into 1-bit cell bitmaps for the render pass.
//
// A Service returns a Glyph for a rune, already positioned inside its cell
// box. FaceService draws through golang.org/x/image/font faces, Chain
// falls back across services (a regular face, then a CJK face) and Cache
// bounds memoized results.
package glyph

// Glyph is a 1-bit bitmap covering one or two cells.
// Bits holds Height rows of Stride bytes, most significant bit first;
// a set bit is ink.
type Glyph struct {
	Bits    []byte
	Stride  int
	Width   int
	Height  int
	Advance int // cells occupied: 1, or 2 for wide runes
}

// NewGlyph allocates a blank glyph.
func NewGlyph(width, height, advance int) Glyph {
	stride := (width + 7) / 8
	return Glyph{
		Bits:    make([]byte, stride*height),
		Stride:  stride,
		Width:   width,
		Height:  height,
		Advance: advance,
	}
}

// At reports whether pixel (x, y) is ink. Out-of-range pixels are not.
func (g Glyph) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return g.Bits[y*g.Stride+x/8]&(0x80>>(x%8)) != 0
}

// Set marks pixel (x, y) as ink. Out-of-range pixels are ignored.
func (g Glyph) Set(x, y int) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Bits[y*g.Stride+x/8] |= 0x80 >> (x % 8)
}

// Service looks up glyph bitmaps.
type Service interface {
	// BitmapFor returns the glyph for r, or false when r has no glyph.
	BitmapFor(r rune) (Glyph, bool)
}

// Chain tries each service in order and returns the first hit.
type Chain []Service

// BitmapFor implements Service.
func (c Chain) BitmapFor(r rune) (Glyph, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if g, ok := s.BitmapFor(r); ok {
			return g, true
		}
	}
	return Glyph{}, false
}
