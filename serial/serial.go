// Package serial opens the board's serial line.
package serial

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pkg/term"
)

const (
	BAUD         = 115200                 // Default line rate.
	READ_TIMEOUT = 100 * time.Millisecond // Default bounded read wait.
)

// Port is a raw-mode serial line with bounded reads.
type Port struct {
	Verbose bool // If set, logs line traffic sizes.

	name string
	tty  *term.Term
}

// Open the named device at baud, in raw mode, with READ_TIMEOUT reads.
func Open(name string, baud int) (port *Port, err error) {
	if baud <= 0 {
		err = fmt.Errorf("%w: %d", ErrBaud, baud)
		return
	}

	tty, err := term.Open(name, term.Speed(baud), term.RawMode)
	if err != nil {
		err = fmt.Errorf("%w: %v: %w", ErrOpen, name, err)
		return
	}

	err = tty.SetReadTimeout(READ_TIMEOUT)
	if err != nil {
		tty.Close()
		err = fmt.Errorf("%w: %v: %w", ErrOpen, name, err)
		return
	}

	// Discard anything queued before we opened.
	tty.Flush()

	port = &Port{
		name: name,
		tty:  tty,
	}

	return
}

// Name of the device.
func (port *Port) Name() string {
	return port.name
}

// Read waits at most the read timeout; n is zero if nothing arrived.
// The terminal layer reports an expired timeout as io.EOF, which is not an
// end of stream for a serial line.
func (port *Port) Read(b []byte) (n int, err error) {
	n, err = port.tty.Read(b)
	if n == 0 && err == io.EOF {
		err = nil
	}
	if port.Verbose && n > 0 {
		log.Printf("serial: %v: read %d", port.name, n)
	}
	return
}

func (port *Port) Write(b []byte) (n int, err error) {
	n, err = port.tty.Write(b)
	if port.Verbose {
		log.Printf("serial: %v: wrote %d", port.name, n)
	}
	return
}

// SetReadTimeout sets the bounded read wait.
func (port *Port) SetReadTimeout(timeout time.Duration) error {
	return port.tty.SetReadTimeout(timeout)
}

// Close restores the line settings and closes the device.
func (port *Port) Close() (err error) {
	port.tty.Restore()
	err = port.tty.Close()
	return
}
