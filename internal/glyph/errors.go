package glyph

import "errors"

// Font loading errors.
var (
	// ErrFontNotFound indicates no font file matched the search.
	ErrFontNotFound = errors.New("font not found")

	// ErrInvalidFont indicates a font file that could not be parsed.
	ErrInvalidFont = errors.New("invalid font")

	// ErrInvalidCellSize indicates a non-positive cell size.
	ErrInvalidCellSize = errors.New("invalid cell size")
)
