package epd

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"

	"github.com/dshills/inkterm/internal/panel"
)

// fakePin records the last level and every transition.
type fakePin struct {
	level gpio.Level
	log   []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.level = l
	p.log = append(p.log, l)
	return nil
}

// busyPin reads low for a number of samples, then high.
type busyPin struct {
	lowReads int
	reads    int
}

func (p *busyPin) Read() gpio.Level {
	p.reads++
	if p.reads <= p.lowReads {
		return gpio.Low
	}
	return gpio.High
}

type write struct {
	data  bool
	bytes []byte
}

// fakeConn records transfers tagged with the DC level at the time.
type fakeConn struct {
	dc     *fakePin
	writes []write
	maxTx  int
	fail   error
}

func (c *fakeConn) String() string      { return "fake" }
func (c *fakeConn) Duplex() conn.Duplex { return conn.Half }
func (c *fakeConn) MaxTxSize() int      { return c.maxTx }

func (c *fakeConn) TxPackets(p []spi.Packet) error {
	return errors.New("not implemented")
}

func (c *fakeConn) Tx(w, r []byte) error {
	if c.fail != nil {
		return c.fail
	}
	buf := make([]byte, len(w))
	copy(buf, w)
	c.writes = append(c.writes, write{data: c.dc.level == gpio.High, bytes: buf})
	return nil
}

// commands returns the command bytes in order.
func (c *fakeConn) commands() []byte {
	var out []byte
	for _, w := range c.writes {
		if !w.data {
			out = append(out, w.bytes...)
		}
	}
	return out
}

// dataAfter returns the data bytes sent after the first occurrence of cmd.
func (c *fakeConn) dataAfter(cmd byte) []byte {
	var out []byte
	collecting := false
	for _, w := range c.writes {
		if !w.data {
			if collecting {
				return out
			}
			collecting = w.bytes[0] == cmd
			continue
		}
		if collecting {
			out = append(out, w.bytes...)
		}
	}
	return out
}

type rig struct {
	dev  *Device
	conn *fakeConn
	rst  *fakePin
	cs   *fakePin
	pwr  *fakePin
	busy *busyPin
}

func newRig(busyLow int) *rig {
	dc := &fakePin{}
	r := &rig{
		conn: &fakeConn{dc: dc, maxTx: 1024},
		rst:  &fakePin{},
		cs:   &fakePin{},
		pwr:  &fakePin{},
		busy: &busyPin{lowReads: busyLow},
	}
	r.dev = NewDevice(r.conn, Lines{RST: r.rst, DC: dc, CS: r.cs, PWR: r.pwr, BUSY: r.busy}, Options{})
	r.dev.sleep = func(time.Duration) {}
	return r
}

func TestInitSequence(t *testing.T) {
	r := newRig(0)

	if err := r.dev.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	if r.pwr.level != gpio.High {
		t.Error("expected power pin high")
	}
	wantReset := []gpio.Level{gpio.High, gpio.Low, gpio.High}
	if len(r.rst.log) != 3 {
		t.Fatalf("expected 3 reset transitions, got %v", r.rst.log)
	}
	for i := range wantReset {
		if r.rst.log[i] != wantReset[i] {
			t.Errorf("reset step %d: expected %v, got %v", i, wantReset[i], r.rst.log[i])
		}
	}

	wantCmds := []byte{cmdPowerSetting, cmdPowerOn, cmdGetStatus, cmdPanelSetting, cmdResolution, cmdDualSPI, cmdVCOMInterval, cmdTCON}
	if got := r.conn.commands(); string(got) != string(wantCmds) {
		t.Errorf("expected commands % x, got % x", wantCmds, got)
	}
	if got := r.conn.dataAfter(cmdResolution); string(got) != "\x03\x20\x01\xe0" {
		t.Errorf("expected resolution 800x480, got % x", got)
	}
	if got := r.conn.dataAfter(cmdPowerSetting); string(got) != "\x07\x07\x3f\x3f" {
		t.Errorf("expected power setting, got % x", got)
	}
}

func TestDisplayInvertsAndChunks(t *testing.T) {
	r := newRig(0)
	if err := r.dev.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	r.conn.writes = nil

	frame := make([]byte, panel.FrameSize(Width, Height))
	for i := range frame {
		frame[i] = 0xFF
	}
	frame[0] = 0x0F

	if err := r.dev.Display(frame); err != nil {
		t.Fatalf("display: %v", err)
	}

	data := r.conn.dataAfter(cmdNewFrame)
	if len(data) != len(frame) {
		t.Fatalf("expected %d data bytes, got %d", len(frame), len(data))
	}
	if data[0] != 0xF0 || data[1] != 0x00 {
		t.Errorf("expected inverted bytes f0 00, got %02x %02x", data[0], data[1])
	}
	for _, w := range r.conn.writes {
		if len(w.bytes) > 1024 {
			t.Errorf("expected transfers of at most 1024 bytes, got %d", len(w.bytes))
		}
	}

	cmds := r.conn.commands()
	if cmds[0] != cmdNewFrame || cmds[1] != cmdRefresh {
		t.Errorf("expected new frame then refresh, got % x", cmds)
	}
}

func TestDisplayRequiresInit(t *testing.T) {
	r := newRig(0)

	err := r.dev.Display(make([]byte, panel.FrameSize(Width, Height)))
	if !errors.Is(err, panel.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestDisplayWrongSize(t *testing.T) {
	r := newRig(0)
	_ = r.dev.Init()

	if err := r.dev.Display(make([]byte, 10)); !errors.Is(err, panel.ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}
}

func TestClearSendsBothFrames(t *testing.T) {
	r := newRig(0)
	_ = r.dev.Init()
	r.conn.writes = nil

	if err := r.dev.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	old := r.conn.dataAfter(cmdOldFrame)
	fresh := r.conn.dataAfter(cmdNewFrame)
	size := panel.FrameSize(Width, Height)
	if len(old) != size || len(fresh) != size {
		t.Fatalf("expected %d bytes per frame, got %d and %d", size, len(old), len(fresh))
	}
	if old[0] != 0xFF || fresh[0] != 0x00 {
		t.Errorf("expected old=ff new=00, got %02x %02x", old[0], fresh[0])
	}
}

func TestWaitBusyPolls(t *testing.T) {
	r := newRig(5)

	if err := r.dev.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if r.busy.reads != 6 {
		t.Errorf("expected 6 busy reads, got %d", r.busy.reads)
	}
}

func TestWaitBusyTimeout(t *testing.T) {
	r := newRig(1 << 30)
	r.dev.busyTimeout = 50 * time.Millisecond

	if err := r.dev.Init(); !errors.Is(err, ErrBusyTimeout) {
		t.Errorf("expected ErrBusyTimeout, got %v", err)
	}
}

func TestSleepAndClose(t *testing.T) {
	r := newRig(0)
	_ = r.dev.Init()
	r.conn.writes = nil

	if err := r.dev.Sleep(); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if got := r.conn.dataAfter(cmdDeepSleep); string(got) != "\xa5" {
		t.Errorf("expected deep sleep check byte, got % x", got)
	}
	if err := r.dev.Display(make([]byte, panel.FrameSize(Width, Height))); !errors.Is(err, panel.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after sleep, got %v", err)
	}

	if err := r.dev.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if r.pwr.level != gpio.Low || r.rst.level != gpio.Low {
		t.Error("expected lines low after close")
	}
	if err := r.dev.Init(); !errors.Is(err, panel.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestTransferErrorPropagates(t *testing.T) {
	r := newRig(0)
	boom := errors.New("spi down")
	r.conn.fail = boom

	if err := r.dev.Init(); !errors.Is(err, boom) {
		t.Errorf("expected spi error, got %v", err)
	}
}

func TestChipSelectFramesTransfers(t *testing.T) {
	r := newRig(0)
	_ = r.dev.Init()

	if r.cs.level != gpio.High {
		t.Error("expected CS released after transfers")
	}
	if len(r.cs.log) != 2*len(r.conn.writes) {
		t.Errorf("expected two CS transitions per transfer, got %d for %d transfers", len(r.cs.log), len(r.conn.writes))
	}
}

// registerTestPin adds a fake line to the gpio registry once per process.
func registerTestPin(t *testing.T, name string, num int) *gpiotest.Pin {
	t.Helper()
	if p, ok := gpioreg.ByName(name).(*gpiotest.Pin); ok {
		return p
	}
	p := &gpiotest.Pin{N: name, Num: num}
	if err := gpioreg.Register(p); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return p
}

func TestLookupLinesBusyFloats(t *testing.T) {
	registerTestPin(t, "INKTEST_RST", 9001)
	registerTestPin(t, "INKTEST_DC", 9002)
	busy := registerTestPin(t, "INKTEST_BUSY", 9003)
	busy.P = gpio.PullUp

	lines, err := lookupLines(Pins{RST: "INKTEST_RST", DC: "INKTEST_DC", BUSY: "INKTEST_BUSY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines.CS != nil || lines.PWR != nil {
		t.Error("expected optional lines to stay unset")
	}
	if got := busy.Pull(); got != gpio.Float {
		t.Errorf("expected busy line floating, got %v", got)
	}
}

func TestLookupLinesMissingPin(t *testing.T) {
	_, err := lookupLines(Pins{RST: "INKTEST_NOPE", DC: "INKTEST_DC", BUSY: "INKTEST_BUSY"})
	if !errors.Is(err, ErrPinNotFound) {
		t.Errorf("expected ErrPinNotFound, got %v", err)
	}
}
