package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// DefaultTerm is the TERM value exported to the child.
const DefaultTerm = "xterm-256color"

// closeGrace is how long Close waits after SIGHUP before killing the child.
const closeGrace = time.Second

// writeRetry is the pause between writes that hit a full pty buffer.
const writeRetry = time.Millisecond

var (
	// ErrClosed is returned by Write after Close or hangup.
	ErrClosed = errors.New("pty closed")

	// ErrNoCommand is returned by Spawn when no program is given.
	ErrNoCommand = errors.New("no command to spawn")
)

// Options configures Spawn.
type Options struct {
	// Command is the program and its arguments.
	Command []string

	// Rows and Cols set the initial window size.
	Rows, Cols int

	// Term is exported as TERM. Empty means DefaultTerm.
	Term string

	// Env is appended to the current environment.
	Env []string

	// Dir is the working directory. Empty means the current one.
	Dir string
}

// Channel is a running program attached to a pseudo-terminal.
type Channel struct {
	cmd  *exec.Cmd
	file *os.File
	fd   int

	eof    atomic.Bool
	closed atomic.Bool
	done   chan struct{}
	err    error
}

// Spawn starts opts.Command on a new pseudo-terminal.
func Spawn(opts Options) (*Channel, error) {
	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return nil, ErrNoCommand
	}

	term := opts.Term
	if term == "" {
		term = DefaultTerm
	}

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM="+term)
	cmd.Env = append(cmd.Env, opts.Env...)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", opts.Command[0], err)
	}

	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("set nonblocking: %w", err)
	}

	c := &Channel{
		cmd:  cmd,
		file: f,
		fd:   fd,
		done: make(chan struct{}),
	}
	go c.wait()
	return c, nil
}

func (c *Channel) wait() {
	c.err = c.cmd.Wait()
	close(c.done)
}

// Pid returns the child's process id.
func (c *Channel) Pid() int {
	return c.cmd.Process.Pid
}

// Read reads pending output into buf without blocking. It returns (0, nil)
// when nothing is pending and io.EOF after the child side hangs up.
func (c *Channel) Read(buf []byte) (int, error) {
	if c.closed.Load() || c.eof.Load() {
		return 0, io.EOF
	}

	n, err := unix.Read(c.fd, buf)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err == unix.EIO:
		// Linux reports a hung-up slave as EIO on the master.
		c.eof.Store(true)
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("pty read: %w", err)
	case n == 0:
		c.eof.Store(true)
		return 0, io.EOF
	}
	return n, nil
}

// Write writes all of p, retrying while the pty buffer is full.
func (c *Channel) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if c.closed.Load() || c.eof.Load() {
			return written, ErrClosed
		}
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			time.Sleep(writeRetry)
		case err == unix.EIO:
			c.eof.Store(true)
			return written, ErrClosed
		case err != nil:
			return written, fmt.Errorf("pty write: %w", err)
		}
	}
	return written, nil
}

// Closed reports whether the channel has reached end of file or was closed.
func (c *Channel) Closed() bool {
	return c.closed.Load() || c.eof.Load()
}

// Exited reports whether the child has exited, and its wait error.
func (c *Channel) Exited() (bool, error) {
	select {
	case <-c.done:
		return true, c.err
	default:
		return false, nil
	}
}

// Close hangs up the child and releases the pty. A child that ignores
// SIGHUP is killed after a grace period.
func (c *Channel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	err := c.file.Close()
	if exited, _ := c.Exited(); !exited {
		_ = c.cmd.Process.Signal(syscall.SIGHUP)
		select {
		case <-c.done:
		case <-time.After(closeGrace):
			_ = c.cmd.Process.Kill()
			<-c.done
		}
	}
	return err
}
