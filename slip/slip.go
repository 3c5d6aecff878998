// Package slip frames byte streams with SLIP byte stuffing.
//
// A frame is its payload with END and ESC escaped, followed by one END.
// When checksums are enabled, four little-endian bytes are appended to the
// payload before the END: the sum, modulo 2^32, of every payload byte plus
// one.
package slip

import (
	"encoding/binary"
	"io"
	"log"
)

const (
	END     = 0xc0
	ESC     = 0xdb
	ESC_END = 0xdc
	ESC_ESC = 0xdd
)

const (
	CAPACITY      = 1024 // Default decoded frame capacity.
	CHECKSUM_SIZE = 4
)

// Sum computes the frame checksum of payload.
func Sum(payload []byte) (sum uint32) {
	for _, b := range payload {
		sum += uint32(b) + 1
	}
	return
}

// Decoder reassembles one frame at a time from a byte stream.
type Decoder struct {
	Verbose  bool // If set, logs dropped frames.
	Checksum bool // If set, frames carry and are checked against a trailing checksum.

	buffer  []byte
	escaped bool
	broken  error
	ready   bool
	dropped int
}

// NewDecoder returns a decoder for frames of at most capacity bytes, after
// unescaping and including any checksum. A capacity <= 0 selects CAPACITY.
func NewDecoder(capacity int) *Decoder {
	if capacity <= 0 {
		capacity = CAPACITY
	}
	return &Decoder{
		buffer: make([]byte, 0, capacity),
	}
}

// Push consumes bytes from data, stopping after the END of the first
// complete frame. It returns the number of bytes consumed; a Ready decoder
// consumes nothing until Reset.
func (dec *Decoder) Push(data []byte) (n int) {
	for n < len(data) && !dec.ready {
		dec.push(data[n])
		n++
	}
	return
}

func (dec *Decoder) push(b byte) {
	if dec.escaped {
		dec.escaped = false
		switch b {
		case ESC_END:
			dec.append(END)
			return
		case ESC_ESC:
			dec.append(ESC)
			return
		}
		dec.breaks(ErrMalformed)
		if b != END {
			return
		}
	}

	switch b {
	case ESC:
		dec.escaped = true
	case END:
		dec.end()
	default:
		dec.append(b)
	}
}

func (dec *Decoder) append(b byte) {
	if dec.broken != nil {
		return
	}
	if len(dec.buffer) == cap(dec.buffer) {
		dec.breaks(ErrOverflow)
		return
	}
	dec.buffer = append(dec.buffer, b)
}

func (dec *Decoder) breaks(err error) {
	if dec.broken == nil {
		dec.broken = err
	}
}

func (dec *Decoder) end() {
	err := dec.broken
	if err == nil && len(dec.buffer) == 0 {
		return
	}

	if err == nil && dec.Checksum {
		size := len(dec.buffer) - CHECKSUM_SIZE
		if size < 0 || binary.LittleEndian.Uint32(dec.buffer[size:]) != Sum(dec.buffer[:size]) {
			err = ErrChecksum
		} else {
			dec.buffer = dec.buffer[:size]
		}
	}

	if err != nil {
		dec.dropped++
		if dec.Verbose {
			log.Printf("slip: frame dropped: %v", err)
		}
		dec.Reset()
		return
	}

	dec.ready = true
}

// Ready is true when a complete frame is available.
func (dec *Decoder) Ready() bool {
	return dec.ready
}

// Frame returns the completed frame, or nil if none is ready. The slice is
// only valid until Reset.
func (dec *Decoder) Frame() []byte {
	if !dec.ready {
		return nil
	}
	return dec.buffer
}

// Reset discards any frame, complete or in progress.
func (dec *Decoder) Reset() {
	dec.buffer = dec.buffer[:0]
	dec.escaped = false
	dec.broken = nil
	dec.ready = false
}

// Dropped returns the number of frames discarded as malformed, oversize or
// failing their checksum.
func (dec *Decoder) Dropped() int {
	return dec.dropped
}

// Encoder writes SLIP frames to an io.Writer. Each frame reaches the
// writer in a single Write at End.
type Encoder struct {
	Checksum bool // If set, a checksum is appended to each frame.

	w      io.Writer
	buffer []byte
	sum    uint32
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (enc *Encoder) escape(c byte) {
	switch c {
	case END:
		enc.buffer = append(enc.buffer, ESC, ESC_END)
	case ESC:
		enc.buffer = append(enc.buffer, ESC, ESC_ESC)
	default:
		enc.buffer = append(enc.buffer, c)
	}
}

// WriteByte adds one payload byte to the current frame.
func (enc *Encoder) WriteByte(c byte) error {
	enc.sum += uint32(c) + 1
	enc.escape(c)
	return nil
}

// Write adds payload bytes to the current frame.
func (enc *Encoder) Write(p []byte) (n int, err error) {
	for _, c := range p {
		enc.WriteByte(c)
	}
	n = len(p)
	return
}

// End terminates the current frame and writes it out.
func (enc *Encoder) End() (err error) {
	if enc.Checksum {
		var sum [CHECKSUM_SIZE]byte
		binary.LittleEndian.PutUint32(sum[:], enc.sum)
		for _, c := range sum {
			enc.escape(c)
		}
	}
	enc.buffer = append(enc.buffer, END)

	_, err = enc.w.Write(enc.buffer)

	enc.buffer = enc.buffer[:0]
	enc.sum = 0

	return
}

// Frame writes payload as one complete frame.
func (enc *Encoder) Frame(payload []byte) (err error) {
	enc.Write(payload)
	err = enc.End()
	return
}
