// Package panel defines the display a session paints to.
//
// A Panel accepts whole frames in the packed 1-bit layout produced by
// package raster: row-major, most significant bit first, bit 1 = paper.
// Drivers live in subpackages (epd for Waveshare e-paper over periph.io,
// preview for a tcell desktop window); Memory is an in-process panel for
// tests and replay.
//
// Any error returned by a panel is fatal to the session: a partially
// written physical frame cannot be recovered.
package panel
