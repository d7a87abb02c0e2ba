package keyboard

import (
	"encoding/binary"
	"testing"

	"github.com/dshills/inkterm/internal/input/key"
)

const testTimeSize = 16

// record builds one input_event with a zero timestamp.
func record(typ uint16, code key.Code, value int32) []byte {
	buf := make([]byte, testTimeSize+8)
	binary.NativeEndian.PutUint16(buf[testTimeSize:], typ)
	binary.NativeEndian.PutUint16(buf[testTimeSize+2:], uint16(code))
	binary.NativeEndian.PutUint32(buf[testTimeSize+4:], uint32(value))
	return buf
}

func records(recs ...[]byte) []byte {
	var out []byte
	for _, r := range recs {
		out = append(out, r...)
	}
	return out
}

func TestDecodePressAndRepeat(t *testing.T) {
	d := newDecoder(testTimeSize)
	buf := records(
		record(evKey, key.CodeA, keyPress),
		record(0, 0, 0), // EV_SYN
		record(evKey, key.CodeA, keyRepeat),
		record(evKey, key.CodeA, keyRelease),
	)

	events := d.decode(buf, nil)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0] != key.NewEvent(key.CodeA, key.ModNone) {
		t.Errorf("expected press of a, got %+v", events[0])
	}
	if !events[1].Repeat || events[1].Code != key.CodeA {
		t.Errorf("expected repeat of a, got %+v", events[1])
	}
}

func TestDecodeTracksModifiers(t *testing.T) {
	d := newDecoder(testTimeSize)

	events := d.decode(records(
		record(evKey, key.CodeLeftCtrl, keyPress),
		record(evKey, key.CodeRightAlt, keyPress),
		record(evKey, key.CodeT, keyPress),
		record(evKey, key.CodeT, keyRelease),
		record(evKey, key.CodeLeftCtrl, keyRelease),
		record(evKey, key.CodeX, keyPress),
		record(evKey, key.CodeRightAlt, keyRelease),
		record(evKey, key.CodeY, keyPress),
	), nil)

	want := []key.Event{
		key.NewEvent(key.CodeT, key.ModCtrl|key.ModAlt),
		key.NewEvent(key.CodeX, key.ModAlt),
		key.NewEvent(key.CodeY, key.ModNone),
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], events[i])
		}
	}
}

func TestDecodeBothShiftKeys(t *testing.T) {
	d := newDecoder(testTimeSize)

	events := d.decode(records(
		record(evKey, key.CodeLeftShift, keyPress),
		record(evKey, key.CodeRightShift, keyPress),
		record(evKey, key.CodeLeftShift, keyRelease),
		record(evKey, key.CodeA, keyPress),
	), nil)

	if len(events) != 1 || events[0].Mods != key.ModShift {
		t.Errorf("expected shift held by the right key, got %+v", events)
	}
}

func TestDecodeIgnoresPartialRecord(t *testing.T) {
	d := newDecoder(testTimeSize)
	buf := record(evKey, key.CodeA, keyPress)

	if events := d.decode(buf[:len(buf)-1], nil); len(events) != 0 {
		t.Errorf("expected no events from partial record, got %d", len(events))
	}
}
