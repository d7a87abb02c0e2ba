package key

// Event is a key press or auto-repeat reported by a keyboard source.
// Releases are not events; sources fold them into modifier state.
type Event struct {
	Code   Code
	Mods   Modifier
	Repeat bool
}

// NewEvent creates a key press event.
func NewEvent(code Code, mods Modifier) Event {
	return Event{Code: code, Mods: mods}
}

// String returns the binding form of the event, like "ctrl+alt+t".
func (e Event) String() string {
	if e.Mods.IsEmpty() {
		return e.Code.String()
	}
	return e.Mods.String() + "+" + e.Code.String()
}

// Encode returns the bytes the event sends to the pty.
func (e Event) Encode() []byte {
	return Encode(e.Code, e.Mods)
}
