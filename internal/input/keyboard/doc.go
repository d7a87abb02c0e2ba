// Package keyboard provides key event sources for a session.
//
// A Source is polled, never blocking: Poll returns ok=false when no event
// is pending. Two sources exist:
//
//   - Evdev reads a Linux input device (/dev/input/eventN) directly, so a
//     headless device with a USB keyboard needs no TTY. Modifier presses
//     and releases are folded into the Mods of subsequent events.
//   - Tcell reads key events from a tcell screen, used with the preview
//     panel on a desktop.
//
// Key codes are Linux evdev codes in both cases (see package key).
package keyboard
