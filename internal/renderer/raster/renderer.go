package raster

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/inkterm/internal/glyph"
	"github.com/dshills/inkterm/internal/terminal"
)

// Default panel geometry.
const (
	DefaultWidth      = 800
	DefaultHeight     = 480
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

// luminanceThreshold separates ink from paper for palette colors.
const luminanceThreshold = 0.5

// Options configures a Renderer.
type Options struct {
	Width      int // panel width in pixels
	Height     int // panel height in pixels
	CellWidth  int
	CellHeight int
}

// DefaultOptions returns the geometry of the 7.5 inch panel with 8x16 cells.
func DefaultOptions() Options {
	return Options{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
	}
}

// GridSize returns how many cells fit on the panel.
func (o Options) GridSize() (rows, cols int) {
	if o.CellWidth <= 0 || o.CellHeight <= 0 {
		return 0, 0
	}
	return o.Height / o.CellHeight, o.Width / o.CellWidth
}

// Renderer draws a screen into a framebuffer. It reuses one framebuffer
// across passes and is not safe for concurrent use.
type Renderer struct {
	glyphs glyph.Service
	opts   Options
	fb     *Framebuffer

	// Pixel origin of cell (0,0)
	originX int
	originY int
	gridW   int
	gridH   int

	frames uint64
	misses uint64
}

// NewRenderer creates a renderer for a rows x cols screen. The grid is
// centered on the panel.
func NewRenderer(glyphs glyph.Service, opts Options, rows, cols int) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = def.CellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = def.CellHeight
	}

	gridW := cols * opts.CellWidth
	gridH := rows * opts.CellHeight
	return &Renderer{
		glyphs:  glyphs,
		opts:    opts,
		fb:      NewFramebuffer(opts.Width, opts.Height),
		originX: max((opts.Width-gridW)/2, 0),
		originY: max((opts.Height-gridH)/2, 0),
		gridW:   gridW,
		gridH:   gridH,
	}
}

// Framebuffer returns the framebuffer of the last pass.
func (r *Renderer) Framebuffer() *Framebuffer {
	return r.fb
}

// Frames returns the number of completed passes.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// GlyphMisses returns the number of cells drawn with the fallback box.
func (r *Renderer) GlyphMisses() uint64 {
	return r.misses
}

// Render draws the whole screen. Every pass starts from a blank page.
func (r *Renderer) Render(s *terminal.Screen) *Framebuffer {
	r.fb.Clear()

	rows, cols := s.Dimensions()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cell := s.CellAt(row, col)
			if cell.IsBlank() || cell.IsContinuation() {
				continue
			}
			r.drawCell(row, col, cell)
		}
	}

	if s.CursorVisible() {
		row, col := s.Cursor()
		x, y := r.cellOrigin(row, col)
		w := r.opts.CellWidth
		if s.CellAt(row, col).Width == 2 {
			w *= 2
		}
		r.fb.InvertRect(x, y, x+w, y+r.opts.CellHeight)
	}

	r.frames++
	return r.fb
}

func (r *Renderer) cellOrigin(row, col int) (x, y int) {
	return r.originX + col*r.opts.CellWidth, r.originY + row*r.opts.CellHeight
}

func (r *Renderer) drawCell(row, col int, cell terminal.Cell) {
	cw, ch := r.opts.CellWidth, r.opts.CellHeight
	x0, y0 := r.cellOrigin(row, col)
	w := cw * max(cell.Width, 1)

	fgInk, bgInk := cellInk(cell)

	if bgInk {
		r.fb.FillRect(x0, y0, x0+w, y0+ch, true)
	}

	if cell.Rune != ' ' && cell.Rune != 0 {
		g, ok := r.lookup(cell.Rune)
		if ok {
			r.blit(g, x0, y0, w, fgInk, cell.Attrs.Has(terminal.AttrBold))
		} else {
			r.misses++
			r.box(x0, y0, w, fgInk)
		}
	}

	if cell.Attrs.Has(terminal.AttrUnderline) {
		r.fb.FillRect(x0, y0+ch-2, x0+w, y0+ch-1, fgInk)
	}
}

func (r *Renderer) lookup(ch rune) (glyph.Glyph, bool) {
	if r.glyphs == nil {
		return glyph.Glyph{}, false
	}
	return r.glyphs.BitmapFor(ch)
}

// blit copies the glyph's ink pixels into the cell box.
// Bold strikes the glyph a second time one pixel to the right.
func (r *Renderer) blit(g glyph.Glyph, x0, y0, w int, ink, bold bool) {
	h := min(g.Height, r.opts.CellHeight)
	gw := min(g.Width, w)
	for y := 0; y < h; y++ {
		for x := 0; x < gw; x++ {
			if !g.At(x, y) {
				continue
			}
			r.fb.Set(x0+x, y0+y, ink)
			if bold && x+1 < w {
				r.fb.Set(x0+x+1, y0+y, ink)
			}
		}
	}
}

// box draws a hollow rectangle inset by one pixel, used for missing glyphs.
func (r *Renderer) box(x0, y0, w int, ink bool) {
	h := r.opts.CellHeight
	x1, y1 := x0+w-2, y0+h-2
	for x := x0 + 1; x <= x1; x++ {
		r.fb.Set(x, y0+1, ink)
		r.fb.Set(x, y1, ink)
	}
	for y := y0 + 1; y <= y1; y++ {
		r.fb.Set(x0+1, y, ink)
		r.fb.Set(x1, y, ink)
	}
}

// cellInk resolves a cell's colors to ink or paper. Reverse swaps them and
// a foreground that would vanish into its background is forced to contrast.
func cellInk(cell terminal.Cell) (fg, bg bool) {
	fg = colorInk(cell.Fg, true)
	bg = colorInk(cell.Bg, false)
	if cell.Attrs.Has(terminal.AttrReverse) {
		fg, bg = bg, fg
	}
	if fg == bg {
		fg = !bg
	}
	return fg, bg
}

// colorInk reports whether a color renders as ink. Default foreground is
// ink and default background is paper; palette colors are thresholded on
// luminance.
func colorInk(c terminal.Color, foreground bool) bool {
	rgb, ok := c.RGB()
	if !ok {
		return foreground
	}
	col := colorful.Color{
		R: float64(rgb[0]) / 255,
		G: float64(rgb[1]) / 255,
		B: float64(rgb[2]) / 255,
	}
	l, _, _ := col.Lab()
	return l < luminanceThreshold
}
