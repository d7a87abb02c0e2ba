package keyboard

import (
	"encoding/binary"

	"github.com/dshills/inkterm/internal/input/key"
)

// Values from linux/input-event-codes.h.
const (
	evKey = 0x01
	evRep = 0x14

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// decoder turns raw input_event records into key events.
//
// A record is struct input_event: a timeval of timeSize bytes followed by
// type (u16), code (u16) and value (s32) in native byte order.
type decoder struct {
	timeSize int
	held     map[key.Code]bool
}

func newDecoder(timeSize int) *decoder {
	return &decoder{timeSize: timeSize, held: make(map[key.Code]bool)}
}

// recordSize returns the size of one input_event.
func (d *decoder) recordSize() int {
	return d.timeSize + 8
}

// decode appends the key events in buf to out. Trailing bytes shorter than
// a record are ignored; the kernel never returns partial records.
func (d *decoder) decode(buf []byte, out []key.Event) []key.Event {
	size := d.recordSize()
	for len(buf) >= size {
		rec := buf[d.timeSize:size]
		typ := binary.NativeEndian.Uint16(rec[0:2])
		code := key.Code(binary.NativeEndian.Uint16(rec[2:4]))
		value := int32(binary.NativeEndian.Uint32(rec[4:8]))
		buf = buf[size:]

		if typ != evKey {
			continue
		}
		if ev, ok := d.handle(code, value); ok {
			out = append(out, ev)
		}
	}
	return out
}

// handle updates modifier state and returns the event for a key record.
func (d *decoder) handle(code key.Code, value int32) (key.Event, bool) {
	if code.IsModifier() {
		switch value {
		case keyPress, keyRepeat:
			d.held[code] = true
		case keyRelease:
			delete(d.held, code)
		}
		return key.Event{}, false
	}

	switch value {
	case keyPress:
		return key.Event{Code: code, Mods: d.mods()}, true
	case keyRepeat:
		return key.Event{Code: code, Mods: d.mods(), Repeat: true}, true
	}
	return key.Event{}, false
}

// mods returns the modifiers currently held.
func (d *decoder) mods() key.Modifier {
	var m key.Modifier
	for code := range d.held {
		if mod, ok := key.ModifierFor(code); ok {
			m = m.With(mod)
		}
	}
	return m
}
