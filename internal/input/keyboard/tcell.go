package keyboard

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkterm/internal/input/key"
)

// eventBuffer is the capacity of the channel between tcell and Poll.
const eventBuffer = 64

// Tcell reads key events from a tcell screen. The screen must already be
// initialized; Tcell does not own it.
type Tcell struct {
	events chan tcell.Event
	quit   chan struct{}
	closed bool
}

// NewTcell starts forwarding events from screen.
func NewTcell(screen tcell.Screen) *Tcell {
	t := &Tcell{
		events: make(chan tcell.Event, eventBuffer),
		quit:   make(chan struct{}),
	}
	go screen.ChannelEvents(t.events, t.quit)
	return t
}

// Poll implements Source. Non-key events are skipped.
func (t *Tcell) Poll() (key.Event, bool, error) {
	if t.closed {
		return key.Event{}, false, ErrClosed
	}

	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				return key.Event{}, false, ErrClosed
			}
			kev, isKey := ev.(*tcell.EventKey)
			if !isKey {
				continue
			}
			if out, ok := translate(kev); ok {
				return out, true, nil
			}
		default:
			return key.Event{}, false, nil
		}
	}
}

// Close implements Source. The screen itself is left running.
func (t *Tcell) Close() error {
	if !t.closed {
		t.closed = true
		close(t.quit)
	}
	return nil
}

// tcellSpecial maps tcell's named keys onto evdev codes.
var tcellSpecial = map[tcell.Key]key.Code{
	tcell.KeyEnter:      key.CodeEnter,
	tcell.KeyTab:        key.CodeTab,
	tcell.KeyBackspace:  key.CodeBackspace,
	tcell.KeyBackspace2: key.CodeBackspace,
	tcell.KeyEscape:     key.CodeEsc,
	tcell.KeyInsert:     key.CodeInsert,
	tcell.KeyDelete:     key.CodeDelete,
	tcell.KeyHome:       key.CodeHome,
	tcell.KeyEnd:        key.CodeEnd,
	tcell.KeyPgUp:       key.CodePageUp,
	tcell.KeyPgDn:       key.CodePageDown,
	tcell.KeyUp:         key.CodeUp,
	tcell.KeyDown:       key.CodeDown,
	tcell.KeyLeft:       key.CodeLeft,
	tcell.KeyRight:      key.CodeRight,
	tcell.KeyF1:         key.CodeF1,
	tcell.KeyF2:         key.CodeF2,
	tcell.KeyF3:         key.CodeF3,
	tcell.KeyF4:         key.CodeF4,
	tcell.KeyF5:         key.CodeF5,
	tcell.KeyF6:         key.CodeF6,
	tcell.KeyF7:         key.CodeF7,
	tcell.KeyF8:         key.CodeF8,
	tcell.KeyF9:         key.CodeF9,
	tcell.KeyF10:        key.CodeF10,
	tcell.KeyF11:        key.CodeF11,
	tcell.KeyF12:        key.CodeF12,
}

// translate converts a tcell key event into an evdev key event.
func translate(ev *tcell.EventKey) (key.Event, bool) {
	mods := convertMod(ev.Modifiers())
	k := ev.Key()

	if k == tcell.KeyBacktab {
		return key.NewEvent(key.CodeTab, mods.With(key.ModShift)), true
	}
	if code, ok := tcellSpecial[k]; ok {
		return key.NewEvent(code, mods), true
	}

	switch {
	case k == tcell.KeyCtrlSpace:
		return key.NewEvent(key.CodeSpace, mods.With(key.ModCtrl)), true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		code, _, ok := key.FromRune('a' + rune(k-tcell.KeyCtrlA))
		return key.NewEvent(code, mods.With(key.ModCtrl)), ok
	}

	// Runes, and control characters reported with their lowercase rune.
	// The rune alone decides Shift.
	if k == tcell.KeyRune || mods.HasCtrl() {
		code, shift, ok := key.FromRune(ev.Rune())
		if !ok {
			return key.Event{}, false
		}
		return key.NewEvent(code, mods.Without(key.ModShift).With(shift)), true
	}
	return key.Event{}, false
}

// convertMod converts tcell modifiers. Meta is folded into Alt.
func convertMod(m tcell.ModMask) key.Modifier {
	var mods key.Modifier
	if m&tcell.ModShift != 0 {
		mods = mods.With(key.ModShift)
	}
	if m&tcell.ModCtrl != 0 {
		mods = mods.With(key.ModCtrl)
	}
	if m&(tcell.ModAlt|tcell.ModMeta) != 0 {
		mods = mods.With(key.ModAlt)
	}
	return mods
}
