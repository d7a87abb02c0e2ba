package glyph

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// alphaThreshold is the coverage at or above which an antialiased pixel
// becomes ink.
const alphaThreshold = 0x80

// FaceService rasterizes glyphs from a font.Face into cellW x cellH boxes.
// It is not safe for concurrent use; wrap it in a Cache to share it.
type FaceService struct {
	face     font.Face
	covers   func(rune) bool
	cellW    int
	cellH    int
	baseline int
}

// NewFaceService creates a service drawing face into cells of the given size.
// covers reports whether the face has a real glyph for a rune; nil means
// every rune is covered.
func NewFaceService(face font.Face, cellW, cellH int, covers func(rune) bool) (*FaceService, error) {
	if cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCellSize, cellW, cellH)
	}
	if covers == nil {
		covers = func(rune) bool { return true }
	}

	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	pad := max((cellH-(ascent+descent))/2, 0)

	return &FaceService{
		face:     face,
		covers:   covers,
		cellW:    cellW,
		cellH:    cellH,
		baseline: min(pad+ascent, cellH),
	}, nil
}

// NewBasicService draws the built-in 7x13 bitmap font, centered in the cell.
func NewBasicService(cellW, cellH int) (*FaceService, error) {
	face := basicfont.Face7x13
	return NewFaceService(face, cellW, cellH, func(r rune) bool {
		for _, rng := range face.Ranges {
			if r >= rng.Low && r < rng.High {
				return true
			}
		}
		return false
	})
}

// LoadFile parses a TrueType or OpenType file (or the first font of a
// collection) and creates a service at the given pixel size. A size of
// zero picks three quarters of the cell height.
func LoadFile(path string, size float64, cellW, cellH int) (*FaceService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}

	f, err := parseFont(path, data)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = float64(cellH) * 3 / 4
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFont, path, err)
	}

	var buf sfnt.Buffer
	return NewFaceService(face, cellW, cellH, func(r rune) bool {
		idx, err := f.GlyphIndex(&buf, r)
		return err == nil && idx != 0
	})
}

func parseFont(path string, data []byte) (*sfnt.Font, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttc", ".otc":
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFont, path, err)
		}
		f, err := coll.Font(0)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFont, path, err)
		}
		return f, nil
	default:
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFont, path, err)
		}
		return f, nil
	}
}

// CellSize returns the cell box the service draws into.
func (s *FaceService) CellSize() (width, height int) {
	return s.cellW, s.cellH
}

// BitmapFor implements Service. Wide runes get a two-cell box.
func (s *FaceService) BitmapFor(r rune) (Glyph, bool) {
	if !s.covers(r) {
		return Glyph{}, false
	}
	adv, ok := s.face.GlyphAdvance(r)
	if !ok {
		return Glyph{}, false
	}

	cells := min(max(runewidth.RuneWidth(r), 1), 2)
	w := s.cellW * cells
	img := image.NewAlpha(image.Rect(0, 0, w, s.cellH))

	d := font.Drawer{
		Dst:  img,
		Src:  image.Opaque,
		Face: s.face,
		Dot:  fixed.P(max((w-adv.Round())/2, 0), s.baseline),
	}
	d.DrawString(string(r))

	g := NewGlyph(w, s.cellH, cells)
	for y := 0; y < s.cellH; y++ {
		for x := 0; x < w; x++ {
			if img.AlphaAt(x, y).A >= alphaThreshold {
				g.Set(x, y)
			}
		}
	}
	return g, true
}
