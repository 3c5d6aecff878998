package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/bitboard/controller"
	"github.com/ezrec/bitboard/cpu"
	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/protocol"
	"github.com/ezrec/bitboard/slip"
)

// pipe is an in-memory Port. Inbound bytes are fed by the test; reads with
// nothing pending wait for the read timeout and return no data.
type pipe struct {
	mutex   sync.Mutex
	in      bytes.Buffer
	out     bytes.Buffer
	timeout time.Duration
	closed  bool
	fail    error
}

func (p *pipe) feed(data []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.in.Write(data)
}

func (p *pipe) close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closed = true
}

func (p *pipe) output() []byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return bytes.Clone(p.out.Bytes())
}

func (p *pipe) SetReadTimeout(timeout time.Duration) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.timeout = timeout
	return nil
}

func (p *pipe) Read(b []byte) (n int, err error) {
	p.mutex.Lock()
	if p.in.Len() > 0 {
		defer p.mutex.Unlock()
		return p.in.Read(b)
	}
	if p.fail != nil {
		defer p.mutex.Unlock()
		return 0, p.fail
	}
	if p.closed {
		defer p.mutex.Unlock()
		return 0, io.EOF
	}
	timeout := p.timeout
	p.mutex.Unlock()

	time.Sleep(timeout)
	return
}

func (p *pipe) Write(b []byte) (n int, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.out.Write(b)
}

var _ Port = (*pipe)(nil)

// idle is a core that never faults.
type idle struct{}

func (idle) Step() error              { return nil }
func (idle) Reset() error             { return nil }
func (idle) Registers() cpu.Registers { return cpu.Registers{} }

func frames(t *testing.T, wire []byte) (out [][]byte) {
	dec := slip.NewDecoder(0)
	for len(wire) > 0 {
		wire = wire[dec.Push(wire):]
		if dec.Ready() {
			out = append(out, bytes.Clone(dec.Frame()))
			dec.Reset()
		}
	}
	return
}

func wire(cmds ...protocol.Command) []byte {
	var buf bytes.Buffer
	enc := slip.NewEncoder(&buf)
	for _, cmd := range cmds {
		enc.Frame(protocol.Encode(cmd))
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) (*Server, *memory.Memory, *controller.Controller) {
	mem, err := memory.New(memory.ENTRY, memory.TRAP_PAGE>>8)
	assert.NoError(t, err)

	ctl := controller.NewController(idle{}, controller.STATE_STOPPED)

	srv := NewServer(&protocol.Handler{Memory: mem, Controller: ctl})
	srv.Poll = time.Millisecond

	return srv, mem, ctl
}

func TestServer(t *testing.T) {
	assert := assert.New(t)

	srv, mem, ctl := newTestServer(t)
	port := &pipe{}

	port.feed(wire(
		protocol.Ping{},
		protocol.WriteMemory{Address: 0x8000, Data: []byte{0xab, 0xcd}},
		protocol.StepOnce{},
	))
	port.feed([]byte{0xff, slip.END})
	port.feed([]byte{0x02, slip.ESC, 0x00, slip.END})
	port.feed(wire(protocol.GetInstructionCount{}))
	port.close()

	err := srv.Serve(context.Background(), port)
	assert.NoError(err)

	assert.Equal([][]byte{
		protocol.Pong(),
		protocol.Pong(),
		protocol.Pong(),
		protocol.Error(),
		protocol.Count(0),
	}, frames(t, port.output()))

	assert.Equal(int64(5), srv.Frames())
	assert.Equal(int64(1), srv.Dropped())
	assert.Equal(uint8(0xab), mem.Peek(0x8000))
	assert.Equal(uint8(0xcd), mem.Peek(0x8001))
	assert.Equal(controller.STATE_STEP_ONCE, ctl.State())
}

func TestServerLog(t *testing.T) {
	assert := assert.New(t)

	srv, _, _ := newTestServer(t)
	port := &pipe{}

	assert.True(srv.Log("hello\n"))
	port.close()

	assert.NoError(srv.Serve(context.Background(), port))
	assert.Equal([][]byte{protocol.Encode(protocol.Log{Text: "hello\n"})}, frames(t, port.output()))

	for range LOG_BACKLOG {
		assert.True(srv.Log("x"))
	}
	assert.False(srv.Log("overflow"))
}

func TestServerCancel(t *testing.T) {
	assert := assert.New(t)

	srv, _, ctl := newTestServer(t)
	port := &pipe{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- srv.Serve(ctx, port)
	}()

	port.feed(wire(protocol.Start{}))
	assert.Eventually(func() bool {
		return ctl.State() == controller.STATE_RUNNING
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(<-done, context.Canceled)
	assert.Equal([][]byte{protocol.Pong()}, frames(t, port.output()))
}

func TestServerPortFailure(t *testing.T) {
	assert := assert.New(t)

	srv, _, _ := newTestServer(t)
	broken := errors.New("unplugged")
	port := &pipe{fail: broken}

	err := srv.Serve(context.Background(), port)
	assert.ErrorIs(err, ErrPort)
	assert.ErrorIs(err, broken)
}
