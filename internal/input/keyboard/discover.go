package keyboard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DevicesFile lists input devices on Linux.
const DevicesFile = "/proc/bus/input/devices"

// Discover returns the device node of the first keyboard listed in
// DevicesFile.
func Discover() (string, error) {
	f, err := os.Open(DevicesFile)
	if err != nil {
		return "", fmt.Errorf("discover keyboard: %w", err)
	}
	defer f.Close()

	nodes, err := parseDevices(f)
	if err != nil {
		return "", fmt.Errorf("discover keyboard: %w", err)
	}
	if len(nodes) == 0 {
		return "", ErrNoKeyboard
	}
	return nodes[0], nil
}

// parseDevices returns /dev/input/eventN for every device block that has a
// kbd handler and reports both EV_KEY and EV_REP. Mice and power buttons
// expose EV_KEY without EV_REP.
func parseDevices(r io.Reader) ([]string, error) {
	var (
		nodes   []string
		kbd     bool
		event   string
		evBits  uint64
		scanner = bufio.NewScanner(r)
	)

	flush := func() {
		want := uint64(1)<<evKey | uint64(1)<<evRep
		if kbd && event != "" && evBits&want == want {
			nodes = append(nodes, "/dev/input/"+event)
		}
		kbd, event, evBits = false, "", 0
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "H: Handlers="):
			for _, h := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				switch {
				case h == "kbd":
					kbd = true
				case strings.HasPrefix(h, "event"):
					event = h
				}
			}
		case strings.HasPrefix(line, "B: EV="):
			bits, err := strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
			if err == nil {
				evBits = bits
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}
