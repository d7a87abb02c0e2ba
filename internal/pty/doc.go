// Package pty provides the byte-duplex channel between a session and the
// shell it hosts.
//
// Spawn starts a program on a new pseudo-terminal sized to the screen.
// Reads are non-blocking: Read returns (0, nil) when no output is pending
// and io.EOF once the child side hangs up. The session loop polls Read
// once per tick and never parks on it.
package pty
