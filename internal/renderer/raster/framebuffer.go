// Package raster turns a terminal screen into a packed 1-bit framebuffer.
package raster

import (
	"image"
	"image/color"
)

// Framebuffer is a width x height 1-bit image, row-major, most significant
// bit first, (width+7)/8 bytes per row. A set bit is paper (white) and a
// clear bit is ink (black), the convention e-paper controllers expect.
type Framebuffer struct {
	width  int
	height int
	stride int
	bits   []byte
}

// NewFramebuffer creates a framebuffer cleared to paper.
func NewFramebuffer(width, height int) *Framebuffer {
	width = max(width, 0)
	height = max(height, 0)
	stride := (width + 7) / 8
	fb := &Framebuffer{
		width:  width,
		height: height,
		stride: stride,
		bits:   make([]byte, stride*height),
	}
	fb.Clear()
	return fb
}

// Size returns the framebuffer dimensions in pixels.
func (f *Framebuffer) Size() (width, height int) {
	return f.width, f.height
}

// Stride returns the number of bytes per row.
func (f *Framebuffer) Stride() int {
	return f.stride
}

// Bytes returns the packed pixel data. The slice aliases the framebuffer.
func (f *Framebuffer) Bytes() []byte {
	return f.bits
}

// Clear sets every pixel to paper.
func (f *Framebuffer) Clear() {
	for i := range f.bits {
		f.bits[i] = 0xFF
	}
}

func (f *Framebuffer) offset(x, y int) (int, byte, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0, 0, false
	}
	return y*f.stride + x/8, 0x80 >> (x % 8), true
}

// Set paints pixel (x, y) as ink or paper. Out-of-range pixels are ignored.
func (f *Framebuffer) Set(x, y int, ink bool) {
	i, mask, ok := f.offset(x, y)
	if !ok {
		return
	}
	if ink {
		f.bits[i] &^= mask
	} else {
		f.bits[i] |= mask
	}
}

// Ink reports whether pixel (x, y) is ink. Out-of-range pixels are paper.
func (f *Framebuffer) Ink(x, y int) bool {
	i, mask, ok := f.offset(x, y)
	return ok && f.bits[i]&mask == 0
}

// Invert flips pixel (x, y).
func (f *Framebuffer) Invert(x, y int) {
	if i, mask, ok := f.offset(x, y); ok {
		f.bits[i] ^= mask
	}
}

// FillRect paints the rectangle [x0,x1) x [y0,y1), clipped to the framebuffer.
func (f *Framebuffer) FillRect(x0, y0, x1, y1 int, ink bool) {
	for y := max(y0, 0); y < min(y1, f.height); y++ {
		for x := max(x0, 0); x < min(x1, f.width); x++ {
			f.Set(x, y, ink)
		}
	}
}

// InvertRect flips every pixel in [x0,x1) x [y0,y1), clipped to the framebuffer.
func (f *Framebuffer) InvertRect(x0, y0, x1, y1 int) {
	for y := max(y0, 0); y < min(y1, f.height); y++ {
		for x := max(x0, 0); x < min(x1, f.width); x++ {
			f.Invert(x, y)
		}
	}
}

// Image returns a copy of the framebuffer as a paletted image for PNG export.
func (f *Framebuffer) Image() *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, f.width, f.height),
		color.Palette{color.Black, color.White})
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			if !f.Ink(x, y) {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}
