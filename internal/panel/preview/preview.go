// Package preview shows panel frames in a terminal window using tcell.
//
// Each terminal cell renders a 2x4 block of braille dots. Frames larger
// than the window are downscaled by an integer factor; a dot is inked when
// any pixel it covers is ink, so thin strokes survive the reduction.
package preview

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkterm/internal/panel"
)

const brailleBase = 0x2800

// brailleBits maps a dot at (x, y) within a 2x4 cell to its braille bit.
var brailleBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Panel emulates an e-paper panel in a tcell screen.
type Panel struct {
	mu     sync.Mutex
	screen tcell.Screen
	width  int
	height int
	style  tcell.Style

	started bool
	inited  bool
	closed  bool
	frames  int
}

var _ panel.Panel = (*Panel)(nil)

// New creates a preview on the controlling terminal.
func New(width, height int) (*Panel, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewWithScreen(screen, width, height), nil
}

// NewWithScreen creates a preview on an existing, uninitialized screen.
func NewWithScreen(screen tcell.Screen, width, height int) *Panel {
	return &Panel{
		screen: screen,
		width:  width,
		height: height,
		style:  tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite),
	}
}

// Screen returns the tcell screen, for wiring a keyboard source to it.
// It is valid after Init.
func (p *Panel) Screen() tcell.Screen {
	return p.screen
}

// Size implements panel.Panel.
func (p *Panel) Size() (int, int) {
	return p.width, p.height
}

// Frames returns the number of frames displayed.
func (p *Panel) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Init implements panel.Panel. The screen is started once; later calls
// wake the panel from Sleep.
func (p *Panel) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return panel.ErrClosed
	}
	if !p.started {
		if err := p.screen.Init(); err != nil {
			return err
		}
		p.screen.HideCursor()
		p.started = true
	}
	p.inited = true
	return nil
}

// Clear implements panel.Panel.
func (p *Panel) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(); err != nil {
		return err
	}
	p.screen.Fill(' ', p.style)
	p.screen.Show()
	return nil
}

// Display implements panel.Panel.
func (p *Panel) Display(frame []byte) error {
	if err := panel.CheckFrame(p, frame); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(); err != nil {
		return err
	}

	sw, sh := p.screen.Size()
	scale := scaleFor(p.width, p.height, sw, sh)
	stride := (p.width + 7) / 8
	dotsW := (p.width + scale - 1) / scale
	dotsH := (p.height + scale - 1) / scale

	p.screen.Fill(' ', p.style)
	for cy := 0; cy*4 < dotsH && cy < sh; cy++ {
		for cx := 0; cx*2 < dotsW && cx < sw; cx++ {
			r := brailleCell(frame, stride, p.width, p.height, cx*2*scale, cy*4*scale, scale)
			p.screen.SetContent(cx, cy, r, nil, p.style)
		}
	}
	p.screen.Show()
	p.frames++
	return nil
}

// Sleep implements panel.Panel. The window stays up showing the last frame.
func (p *Panel) Sleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return panel.ErrClosed
	}
	p.inited = false
	return nil
}

// Close implements panel.Panel.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.started {
		p.screen.Fini()
	}
	return nil
}

func (p *Panel) ready() error {
	switch {
	case p.closed:
		return panel.ErrClosed
	case !p.inited:
		return panel.ErrNotInitialized
	}
	return nil
}

// scaleFor returns the smallest integer factor that fits a w x h pixel
// frame into sw x sh braille cells.
func scaleFor(w, h, sw, sh int) int {
	if sw <= 0 || sh <= 0 {
		return 1
	}
	scale := max((w+sw*2-1)/(sw*2), (h+sh*4-1)/(sh*4))
	return max(scale, 1)
}

// brailleCell returns the braille rune for the 2x4 dots whose top-left
// pixel is (x0, y0), each dot covering a scale x scale block.
func brailleCell(frame []byte, stride, w, h, x0, y0, scale int) rune {
	var bits rune
	for dy := range 4 {
		for dx := range 2 {
			if blockInked(frame, stride, w, h, x0+dx*scale, y0+dy*scale, scale) {
				bits |= brailleBits[dy][dx]
			}
		}
	}
	return brailleBase + bits
}

// blockInked reports whether any pixel in the block is ink (bit 0).
func blockInked(frame []byte, stride, w, h, x0, y0, scale int) bool {
	for y := y0; y < y0+scale && y < h; y++ {
		row := frame[y*stride:]
		for x := x0; x < x0+scale && x < w; x++ {
			if row[x>>3]&(0x80>>(x&7)) == 0 {
				return true
			}
		}
	}
	return false
}
