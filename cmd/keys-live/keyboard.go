package main

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/term"
)

// rawTerminal puts stdin in raw mode and restores it on Close.
type rawTerminal struct {
	fd    int
	state *term.State
}

func openRawTerminal() (*rawTerminal, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &rawTerminal{fd: fd, state: state}, nil
}

func (t *rawTerminal) Close() {
	_ = term.Restore(t.fd, t.state)
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readKeys delivers stdin bytes to onKey until onKey returns false or stdin
// is closed.
func readKeys(r io.Reader, onKey func(byte) bool) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if !onKey(b) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// crlfWriter adds the carriage returns a raw mode terminal no longer inserts.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
