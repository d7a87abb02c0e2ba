package terminal

// Color is a palette color. Only the 16 standard ANSI colors are modeled;
// the panel is monochrome and true color is out of scope.
type Color struct {
	Index   uint8 // 0-15, ignored when Default is set
	Default bool  // Use default fg/bg
}

// DefaultColor is the default foreground or background color.
var DefaultColor = Color{Default: true}

// Standard ANSI palette RGB values (indices 0-15).
var palette = [16][3]uint8{
	{0, 0, 0},
	{205, 0, 0},
	{0, 205, 0},
	{205, 205, 0},
	{0, 0, 238},
	{205, 0, 205},
	{0, 205, 205},
	{229, 229, 229},
	{127, 127, 127},
	{255, 0, 0},
	{0, 255, 0},
	{255, 255, 0},
	{92, 92, 255},
	{255, 0, 255},
	{0, 255, 255},
	{255, 255, 255},
}

// IndexedColor returns the palette color with the given index.
// Indices outside 0-15 yield DefaultColor.
func IndexedColor(index int) Color {
	if index < 0 || index > 15 {
		return DefaultColor
	}
	return Color{Index: uint8(index)}
}

// RGB returns the palette components of the color.
// The second return value is false for default colors.
func (c Color) RGB() (rgb [3]uint8, ok bool) {
	if c.Default {
		return rgb, false
	}
	return palette[c.Index&0x0F], true
}

// Attr is a set of text attributes.
type Attr uint8

const (
	AttrNone      Attr = 0
	AttrBold      Attr = 1 << 0
	AttrUnderline Attr = 1 << 1
	AttrReverse   Attr = 1 << 2
)

// Has returns true if every attribute in attr is set.
func (a Attr) Has(attr Attr) bool {
	return a&attr == attr
}

// Cell is a single character cell of the grid.
type Cell struct {
	Rune  rune
	Width int // 1 normal, 2 leading half of a wide rune, 0 trailing half
	Fg    Color
	Bg    Color
	Attrs Attr
}

// BlankCell returns a space with default colors and no attributes.
func BlankCell() Cell {
	return Cell{
		Rune:  ' ',
		Width: 1,
		Fg:    DefaultColor,
		Bg:    DefaultColor,
	}
}

// IsBlank reports whether the cell renders as plain background.
func (c Cell) IsBlank() bool {
	return (c.Rune == ' ' || c.Rune == 0) &&
		c.Attrs == AttrNone && c.Fg.Default && c.Bg.Default
}

// IsContinuation reports whether the cell is the trailing half of a wide rune.
func (c Cell) IsContinuation() bool {
	return c.Width == 0
}
