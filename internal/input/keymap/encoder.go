package keymap

import (
	"log/slog"

	"github.com/dshills/inkterm/internal/input/key"
)

// Encoder turns key events into pty bytes, consulting an optional script
// before the default encoding.
type Encoder struct {
	script *Script
	logger *slog.Logger
}

// NewEncoder creates an encoder. A nil script uses the default encoding only.
func NewEncoder(script *Script, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Encoder{script: script, logger: logger}
}

// SetScript replaces the script, closing the previous one.
func (e *Encoder) SetScript(script *Script) {
	if e.script != nil && e.script != script {
		e.script.Close()
	}
	e.script = script
}

// Encode returns the bytes for ev. Script errors are logged and the key
// falls back to the default encoding.
func (e *Encoder) Encode(ev key.Event) []byte {
	if e.script != nil {
		out, handled, err := e.script.Lookup(ev)
		if err != nil {
			e.logger.Warn("keymap script failed", "key", ev.String(), "error", err)
		} else if handled {
			return out
		}
	}
	return key.Encode(ev.Code, ev.Mods)
}

// Close closes the script, if any.
func (e *Encoder) Close() {
	if e.script != nil {
		e.script.Close()
		e.script = nil
	}
}
