// Package epd drives a Waveshare 7.5 inch V2 e-paper panel (800x480,
// black and white) over SPI and GPIO using periph.io.
//
// Pin names are periph.io GPIO names using BCM numbering. The defaults
// match the Waveshare e-Paper HAT on a Raspberry Pi:
//
//	RST  GPIO17
//	DC   GPIO25
//	CS   GPIO8
//	BUSY GPIO24
//	PWR  GPIO18
//
// The BUSY line reads low while the controller is working. A full refresh
// takes several seconds and flashes the panel, which is why the session
// schedules refreshes sparingly.
package epd
