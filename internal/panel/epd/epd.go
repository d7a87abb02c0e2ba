package epd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/dshills/inkterm/internal/panel"
)

// Panel geometry.
const (
	Width  = 800
	Height = 480
)

// Defaults for Options.
const (
	DefaultFrequency   = 4 * physic.MegaHertz
	DefaultBusyTimeout = 30 * time.Second
	DefaultMaxTxSize   = 4096
)

const busyPoll = 10 * time.Millisecond

// Controller commands.
const (
	cmdPanelSetting    = 0x00
	cmdPowerSetting    = 0x01
	cmdPowerOff        = 0x02
	cmdPowerOn         = 0x04
	cmdDeepSleep       = 0x07
	cmdOldFrame        = 0x10
	cmdRefresh         = 0x12
	cmdNewFrame        = 0x13
	cmdDualSPI         = 0x15
	cmdVCOMInterval    = 0x50
	cmdTCON            = 0x60
	cmdResolution      = 0x61
	cmdGetStatus       = 0x71
	deepSleepCheckByte = 0xA5
)

var (
	// ErrPinNotFound is returned when a configured GPIO does not exist.
	ErrPinNotFound = errors.New("gpio pin not found")

	// ErrBusyTimeout is returned when BUSY stays low past the timeout.
	ErrBusyTimeout = errors.New("panel busy timeout")
)

// Pins names the GPIO lines. CS and PWR may be empty: an empty CS leaves
// chip select to the SPI controller, an empty PWR means the HAT has no
// power switch.
type Pins struct {
	RST  string `toml:"rst" yaml:"rst"`
	DC   string `toml:"dc" yaml:"dc"`
	CS   string `toml:"cs" yaml:"cs"`
	BUSY string `toml:"busy" yaml:"busy"`
	PWR  string `toml:"pwr" yaml:"pwr"`
}

// DefaultPins returns the Waveshare HAT wiring.
func DefaultPins() Pins {
	return Pins{RST: "GPIO17", DC: "GPIO25", CS: "GPIO8", BUSY: "GPIO24", PWR: "GPIO18"}
}

// Options configures Open.
type Options struct {
	// SPIPort is the periph.io port name; empty selects the first port.
	SPIPort     string
	Pins        Pins
	Frequency   physic.Frequency
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Output is a GPIO line the driver drives.
type Output interface {
	Out(l gpio.Level) error
}

// Input is a GPIO line the driver samples.
type Input interface {
	Read() gpio.Level
}

// Lines are the GPIO lines of a device. CS and PWR may be nil.
type Lines struct {
	RST  Output
	DC   Output
	CS   Output
	PWR  Output
	BUSY Input
}

// Device is an opened panel. It implements panel.Panel.
type Device struct {
	conn   spi.Conn
	closer io.Closer
	lines  Lines
	logger *slog.Logger

	maxTx       int
	busyTimeout time.Duration
	sleep       func(time.Duration)

	inited bool
	closed bool
}

var _ panel.Panel = (*Device)(nil)

// Open initializes periph.io host drivers, opens the SPI port and looks up
// the GPIO lines.
func Open(opts Options) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", opts.SPIPort, err)
	}

	freq := opts.Frequency
	if freq == 0 {
		freq = DefaultFrequency
	}
	c, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}

	lines, err := lookupLines(opts.Pins)
	if err != nil {
		port.Close()
		return nil, err
	}

	d := NewDevice(c, lines, opts)
	d.closer = port
	return d, nil
}

func lookupLines(p Pins) (Lines, error) {
	out := func(name string, optional bool) (gpio.PinIO, error) {
		if name == "" && optional {
			return nil, nil
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
		}
		return pin, nil
	}

	var lines Lines
	rst, err := out(p.RST, false)
	if err != nil {
		return lines, err
	}
	dc, err := out(p.DC, false)
	if err != nil {
		return lines, err
	}
	busy, err := out(p.BUSY, false)
	if err != nil {
		return lines, err
	}
	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		return lines, fmt.Errorf("configure busy pin: %w", err)
	}
	lines = Lines{RST: rst, DC: dc, BUSY: busy}

	if cs, err := out(p.CS, true); err != nil {
		return lines, err
	} else if cs != nil {
		lines.CS = cs
	}
	if pwr, err := out(p.PWR, true); err != nil {
		return lines, err
	} else if pwr != nil {
		lines.PWR = pwr
	}
	return lines, nil
}

// NewDevice wraps an existing SPI connection and GPIO lines.
func NewDevice(c spi.Conn, lines Lines, opts Options) *Device {
	d := &Device{
		conn:        c,
		lines:       lines,
		logger:      opts.Logger,
		maxTx:       DefaultMaxTxSize,
		busyTimeout: opts.BusyTimeout,
		sleep:       time.Sleep,
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.busyTimeout <= 0 {
		d.busyTimeout = DefaultBusyTimeout
	}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		d.maxTx = l.MaxTxSize()
	}
	return d
}

// Size implements panel.Panel.
func (d *Device) Size() (int, int) {
	return Width, Height
}

// Init implements panel.Panel.
func (d *Device) Init() error {
	if d.closed {
		return panel.ErrClosed
	}

	if d.lines.PWR != nil {
		if err := d.lines.PWR.Out(gpio.High); err != nil {
			return fmt.Errorf("power on: %w", err)
		}
	}
	if err := d.reset(); err != nil {
		return err
	}

	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3f, 0x3f}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := d.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	d.sleep(100 * time.Millisecond)
	if err := d.waitBusy(); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x1F}},
		{cmdResolution, []byte{Width >> 8, Width & 0xFF, Height >> 8, Height & 0xFF}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMInterval, []byte{0x10, 0x07}},
		{cmdTCON, []byte{0x22}},
	}
	for _, s := range steps {
		if err := d.send(s.cmd, s.data...); err != nil {
			return err
		}
	}

	d.inited = true
	d.logger.Debug("panel initialized")
	return nil
}

// Clear implements panel.Panel.
func (d *Device) Clear() error {
	if err := d.ready(); err != nil {
		return err
	}

	size := panel.FrameSize(Width, Height)
	if err := d.sendFill(cmdOldFrame, 0xFF, size); err != nil {
		return err
	}
	if err := d.sendFill(cmdNewFrame, 0x00, size); err != nil {
		return err
	}
	return d.refresh()
}

// Display implements panel.Panel. The controller's new-frame RAM uses
// 1 for ink, so the frame is inverted on the way out.
func (d *Device) Display(frame []byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := panel.CheckFrame(d, frame); err != nil {
		return err
	}

	inv := make([]byte, len(frame))
	for i, b := range frame {
		inv[i] = ^b
	}
	if err := d.command(cmdNewFrame); err != nil {
		return err
	}
	if err := d.data(inv); err != nil {
		return err
	}
	return d.refresh()
}

// Sleep implements panel.Panel.
func (d *Device) Sleep() error {
	if d.closed {
		return panel.ErrClosed
	}
	if !d.inited {
		return nil
	}

	if err := d.command(cmdPowerOff); err != nil {
		return err
	}
	if err := d.waitBusy(); err != nil {
		return err
	}
	if err := d.send(cmdDeepSleep, deepSleepCheckByte); err != nil {
		return err
	}
	d.inited = false
	d.logger.Debug("panel asleep")
	return nil
}

// Close implements panel.Panel. The lines are driven low.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for _, l := range []Output{d.lines.DC, d.lines.CS, d.lines.PWR, d.lines.RST} {
		if l != nil {
			errs = append(errs, l.Out(gpio.Low))
		}
	}
	if d.closer != nil {
		errs = append(errs, d.closer.Close())
	}
	return errors.Join(errs...)
}

func (d *Device) ready() error {
	switch {
	case d.closed:
		return panel.ErrClosed
	case !d.inited:
		return panel.ErrNotInitialized
	}
	return nil
}

// reset pulses RST low.
func (d *Device) reset() error {
	for _, step := range []struct {
		level gpio.Level
		wait  time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		if err := d.lines.RST.Out(step.level); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		d.sleep(step.wait)
	}
	return nil
}

// refresh latches the frame RAM onto the panel.
func (d *Device) refresh() error {
	if err := d.command(cmdRefresh); err != nil {
		return err
	}
	d.sleep(100 * time.Millisecond)
	return d.waitBusy()
}

// waitBusy polls BUSY until the controller is idle.
func (d *Device) waitBusy() error {
	for waited := time.Duration(0); ; waited += busyPoll {
		if err := d.command(cmdGetStatus); err != nil {
			return err
		}
		if d.lines.BUSY.Read() == gpio.High {
			return nil
		}
		if waited >= d.busyTimeout {
			return ErrBusyTimeout
		}
		d.sleep(busyPoll)
	}
}

func (d *Device) send(cmd byte, data ...byte) error {
	if err := d.command(cmd); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.data(data)
}

func (d *Device) command(cmd byte) error {
	if err := d.lines.DC.Out(gpio.Low); err != nil {
		return fmt.Errorf("command %#02x: %w", cmd, err)
	}
	if err := d.tx([]byte{cmd}); err != nil {
		return fmt.Errorf("command %#02x: %w", cmd, err)
	}
	return nil
}

func (d *Device) data(p []byte) error {
	if err := d.lines.DC.Out(gpio.High); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	for len(p) > 0 {
		n := min(len(p), d.maxTx)
		if err := d.tx(p[:n]); err != nil {
			return fmt.Errorf("data: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// sendFill sends cmd followed by n copies of b.
func (d *Device) sendFill(cmd, b byte, n int) error {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	if err := d.command(cmd); err != nil {
		return err
	}
	return d.data(buf)
}

// tx performs one SPI write, framing it with CS when the driver owns it.
func (d *Device) tx(p []byte) error {
	if d.lines.CS != nil {
		if err := d.lines.CS.Out(gpio.Low); err != nil {
			return err
		}
		defer d.lines.CS.Out(gpio.High)
	}
	return d.conn.Tx(p, nil)
}
