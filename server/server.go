// Package server runs the board side of the command protocol over a port.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ezrec/bitboard/protocol"
	"github.com/ezrec/bitboard/slip"
)

const (
	POLL_TIMEOUT = 100 * time.Millisecond // Default bounded read wait.
	LOG_BACKLOG  = 64                     // Default outbound Log frames held.
)

// Port is the byte stream to the operator. Reads return after at most the
// configured read timeout, possibly with no data.
type Port interface {
	io.ReadWriter
	SetReadTimeout(timeout time.Duration) (err error)
}

// FrameHandler answers one request frame with one response frame.
type FrameHandler interface {
	Handle(frame []byte) (response []byte)
}

var _ FrameHandler = (*protocol.Handler)(nil)

// Server is the protocol loop.
type Server struct {
	Verbose  bool          // If set, logs every frame.
	Poll     time.Duration // Bounded read wait.
	Checksum bool          // If set, frames carry a SLIP checksum.
	Capacity int           // Largest request frame accepted.

	handler FrameHandler
	logs    chan string
	frames  atomic.Int64
	dropped atomic.Int64
}

// NewServer creates a protocol loop answering with handler.
func NewServer(handler FrameHandler) (srv *Server) {
	srv = &Server{
		Poll:     POLL_TIMEOUT,
		Capacity: slip.CAPACITY,
		handler:  handler,
		logs:     make(chan string, LOG_BACKLOG),
	}
	return
}

// Log queues text to be sent to the operator as a Log frame. It never
// blocks; ok is false if the backlog is full and the text was dropped.
func (srv *Server) Log(text string) (ok bool) {
	select {
	case srv.logs <- text:
		ok = true
	default:
	}
	return
}

// Frames returns the number of request frames answered.
func (srv *Server) Frames() int64 {
	return srv.frames.Load()
}

// Dropped returns the number of malformed request frames discarded.
func (srv *Server) Dropped() int64 {
	return srv.dropped.Load()
}

func timeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// Serve runs the protocol loop on port until ctx is done or the port fails.
// An end of file on the port ends the loop without error.
func (srv *Server) Serve(ctx context.Context, port Port) (err error) {
	err = port.SetReadTimeout(srv.Poll)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPort, err)
		return
	}

	dec := slip.NewDecoder(srv.Capacity)
	dec.Checksum = srv.Checksum
	dec.Verbose = srv.Verbose

	enc := slip.NewEncoder(port)
	enc.Checksum = srv.Checksum

	buffer := make([]byte, max(srv.Capacity, slip.CAPACITY))

	for {
		if err = ctx.Err(); err != nil {
			return
		}

		err = srv.drain(enc)
		if err != nil {
			return
		}

		var n int
		n, err = port.Read(buffer)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			err = nil
			return
		case timeout(err):
			err = nil
		default:
			err = fmt.Errorf("%w: %w", ErrPort, err)
			return
		}

		dropped := dec.Dropped()
		for data := buffer[:n]; len(data) > 0; {
			data = data[dec.Push(data):]
			if !dec.Ready() {
				continue
			}

			response := srv.handler.Handle(dec.Frame())
			dec.Reset()
			srv.frames.Add(1)

			err = enc.Frame(response)
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrPort, err)
				return
			}
			if srv.Verbose {
				log.Printf("server: response %v", protocol.Code(response[0]))
			}
		}
		srv.dropped.Add(int64(dec.Dropped() - dropped))

		runtime.Gosched()
	}
}

func (srv *Server) drain(enc *slip.Encoder) (err error) {
	for {
		select {
		case text := <-srv.logs:
			err = enc.Frame(protocol.Encode(protocol.Log{Text: text}))
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrPort, err)
				return
			}
		default:
			return
		}
	}
}
