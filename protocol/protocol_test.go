package protocol

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/slip"
)

type fakeController struct {
	state string
	count uint64
	fault error
	calls int
}

func (ctl *fakeController) Start()        { ctl.state = "running"; ctl.calls++ }
func (ctl *fakeController) Stop()         { ctl.state = "stopped"; ctl.calls++ }
func (ctl *fakeController) Step()         { ctl.state = "step"; ctl.calls++ }
func (ctl *fakeController) Count() uint64 { return ctl.count }

func (ctl *fakeController) Fault() (err error) {
	err = ctl.fault
	ctl.fault = nil
	return
}

var _ Controller = (*fakeController)(nil)
var _ Memory = (*memory.Memory)(nil)

func newTestHandler(t *testing.T) (*Handler, *memory.Memory, *fakeController) {
	mem, err := memory.New(memory.ENTRY, memory.TRAP_PAGE>>8)
	assert.NoError(t, err)
	ctl := &fakeController{state: "running"}
	return &Handler{Memory: mem, Controller: ctl}, mem, ctl
}

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("ping", CMD_REQ_PING.String())
	assert.Equal("count", CMD_GET_INST_COUNT.String())
	assert.Equal("Code(255)", Code(0xff).String())
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		frame []byte
		cmd   Command
		err   error
	}{
		{[]byte{2}, Ping{}, nil},
		{[]byte{6}, Start{}, nil},
		{[]byte{7}, Stop{}, nil},
		{[]byte{8}, StepOnce{}, nil},
		{[]byte{9}, GetInstructionCount{}, nil},
		{[]byte{0}, Nop{Tag: CMD_NONE}, nil},
		{[]byte{1}, Nop{Tag: CMD_RSP_ERROR}, nil},
		{[]byte{3}, Nop{Tag: CMD_RSP_PONG}, nil},
		{[]byte{4, 'h', 'i'}, Log{Text: "hi"}, nil},
		{[]byte{4}, Log{}, nil},
		{[]byte{5, 0x00, 0x80, 0xab}, WriteMemory{Address: 0x8000, Data: []byte{0xab}}, nil},
		{[]byte{5, 0x00, 0x80}, nil, ErrInvalidPayloadSize},
		{[]byte{5}, nil, ErrInvalidPayloadSize},
		{[]byte{2, 0}, nil, ErrInvalidPayloadSize},
		{[]byte{9, 1, 2}, nil, ErrInvalidPayloadSize},
		{[]byte{0xff}, nil, ErrInvalidCommand},
		{[]byte{10}, nil, ErrInvalidCommand},
		{[]byte{}, nil, ErrInvalidCommand},
	}

	for _, entry := range table {
		cmd, err := Decode(entry.frame)
		if entry.err != nil {
			assert.ErrorIs(err, entry.err, "%x", entry.frame)
			assert.Nil(cmd)
			continue
		}
		assert.NoError(err, "%x", entry.frame)
		assert.Equal(entry.cmd, cmd, "%x", entry.frame)
		assert.Equal(entry.frame, Encode(cmd), "%x", entry.frame[:1])
	}
}

func TestHandlePing(t *testing.T) {
	assert := assert.New(t)

	h, _, ctl := newTestHandler(t)

	assert.Equal([]byte{byte(CMD_RSP_PONG)}, h.Handle(Encode(Ping{})))
	assert.Equal(0, ctl.calls)
}

func TestHandleWriteMemory(t *testing.T) {
	assert := assert.New(t)

	h, mem, _ := newTestHandler(t)

	response := h.Handle([]byte{byte(CMD_WRITE_MEM), 0x00, 0x80, 0xab, 0xcd})
	assert.Equal(Pong(), response)
	assert.Equal(uint8(0xab), mem.Read(0x8000))
	assert.Equal(uint8(0xcd), mem.Read(0x8001))

	// Trapped slots are written as plain storage, not dispatched.
	var called bool
	mem.SetWrite(0x00, memory.WriteFunc(func(uint16, uint8) error {
		called = true
		return nil
	}))
	assert.Equal(Pong(), h.Handle([]byte{byte(CMD_WRITE_MEM), 0x00, 0x7f, 0x11}))
	assert.False(called)

	// Too short.
	assert.Equal(Error(), h.Handle([]byte{byte(CMD_WRITE_MEM), 0x00, 0x80}))
}

func TestHandleWriteMemoryOutOfRange(t *testing.T) {
	assert := assert.New(t)

	h, mem, _ := newTestHandler(t)

	response := h.Handle([]byte{byte(CMD_WRITE_MEM), 0xfe, 0xff, 1, 2, 3})
	assert.Equal(Error(), response)
	assert.Equal(uint8(0), mem.Peek(0xfffe))
	assert.Equal(uint8(0), mem.Peek(0xffff))
}

func TestHandleRunState(t *testing.T) {
	assert := assert.New(t)

	h, _, ctl := newTestHandler(t)
	ctl.count = 42

	assert.Equal(Pong(), h.Handle(Encode(Stop{})))
	assert.Equal("stopped", ctl.state)
	assert.Equal(Pong(), h.Handle(Encode(StepOnce{})))
	assert.Equal("step", ctl.state)
	assert.Equal(Pong(), h.Handle(Encode(Start{})))
	assert.Equal("running", ctl.state)
	assert.Equal(uint64(42), ctl.count)
}

func TestHandleCount(t *testing.T) {
	assert := assert.New(t)

	h, _, ctl := newTestHandler(t)
	ctl.count = 5

	assert.Equal([]byte{byte(CMD_GET_INST_COUNT), 5, 0, 0, 0}, h.Handle(Encode(GetInstructionCount{})))

	ctl.count = 0x1_0000_0102
	assert.Equal([]byte{byte(CMD_GET_INST_COUNT), 2, 1, 0, 0}, h.Handle(Encode(GetInstructionCount{})))
}

func TestHandleFault(t *testing.T) {
	assert := assert.New(t)

	h, _, ctl := newTestHandler(t)

	ctl.fault = errors.New("hard fault")
	assert.Equal(Error(), h.Handle(Encode(Ping{})))
	assert.Equal(Pong(), h.Handle(Encode(Ping{})))

	ctl.fault = errors.New("hard fault")
	assert.Equal(Error(), h.Handle(Encode(GetInstructionCount{})))
	assert.Equal(Count(0), h.Handle(Encode(GetInstructionCount{})))
}

func TestHandleUnknown(t *testing.T) {
	assert := assert.New(t)

	h, mem, ctl := newTestHandler(t)

	for _, frame := range [][]byte{{0xff}, {0xff, 0x00, 0x80, 0x12}, {0x0a}} {
		assert.Equal(Error(), h.Handle(frame))
	}
	assert.Equal(0, ctl.calls)
	assert.Equal("running", ctl.state)
	assert.Equal(uint8(0), mem.Peek(0x8000))
}

func TestHandleLog(t *testing.T) {
	assert := assert.New(t)

	h, _, _ := newTestHandler(t)

	var lines []string
	h.Log = func(text string) {
		lines = append(lines, text)
	}

	assert.Equal(Pong(), h.Handle(Encode(Log{Text: "hello\n"})))
	assert.Equal(Pong(), h.Handle(Encode(Nop{Tag: CMD_NONE})))
	assert.Equal([]string{"hello\n"}, lines)
}

// loopback answers each request frame written to it with the handler's
// response, preceded by any queued Log frames.
type loopback struct {
	mutex    sync.Mutex
	checksum bool
	handler  *Handler
	dec      *slip.Decoder
	out      bytes.Buffer
	logs     []string
	requests int
}

func newLoopback(h *Handler, checksum bool) *loopback {
	lb := &loopback{checksum: checksum, handler: h, dec: slip.NewDecoder(0)}
	lb.dec.Checksum = checksum
	return lb
}

func (lb *loopback) Write(p []byte) (n int, err error) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	enc := slip.NewEncoder(&lb.out)
	enc.Checksum = lb.checksum

	for n < len(p) {
		n += lb.dec.Push(p[n:])
		if lb.dec.Ready() {
			for _, text := range lb.logs {
				enc.Frame(Encode(Log{Text: text}))
			}
			lb.logs = nil
			lb.requests++
			enc.Frame(lb.handler.Handle(lb.dec.Frame()))
			lb.dec.Reset()
		}
	}
	return
}

func (lb *loopback) Read(p []byte) (n int, err error) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	if lb.out.Len() == 0 {
		return
	}
	return lb.out.Read(p)
}

func TestClient(t *testing.T) {
	assert := assert.New(t)

	for _, checksum := range []bool{false, true} {
		h, mem, ctl := newTestHandler(t)
		lb := newLoopback(h, checksum)

		client := NewClient(lb, checksum)
		client.Chunk = 3

		var logs []string
		client.OnLog = func(text string) {
			logs = append(logs, text)
		}

		assert.NoError(client.Ping())
		assert.NoError(client.Stop())
		assert.Equal("stopped", ctl.state)
		assert.NoError(client.Step())
		assert.Equal("step", ctl.state)
		assert.NoError(client.Start())
		assert.Equal("running", ctl.state)

		data := []byte{0xa9, 0x01, 0xc0, 0xdb, 0x00, 0x60, 0xea}
		assert.NoError(client.WriteMemory(0x8000, data))
		for n, value := range data {
			assert.Equal(value, mem.Peek(0x8000+uint16(n)))
		}
		sent := lb.requests
		assert.ErrorIs(client.WriteMemory(0xffff, []byte{1, 2}), memory.ErrOutOfRange)
		assert.Equal(sent, lb.requests)

		ctl.count = 1234
		lb.logs = []string{"boot\n"}
		count, err := client.InstructionCount()
		assert.NoError(err)
		assert.Equal(uint32(1234), count)
		assert.Equal([]string{"boot\n"}, logs)

		ctl.fault = errors.New("hard fault")
		assert.ErrorIs(client.Ping(), ErrRemote)

		ctl.fault = errors.New("hard fault")
		_, err = client.InstructionCount()
		assert.ErrorIs(err, ErrRemote)
	}
}

// silent discards writes and never has anything to read.
type silent struct{}

func (silent) Write(p []byte) (int, error) { return len(p), nil }
func (silent) Read(p []byte) (int, error)  { return 0, nil }

func TestClientTimeout(t *testing.T) {
	assert := assert.New(t)

	client := NewClient(silent{}, false)
	client.Timeout = time.Millisecond

	assert.ErrorIs(client.Ping(), ErrTimeout)
	assert.ErrorIs(client.Poll(), ErrTimeout)
}

func FuzzHandle(f *testing.F) {
	f.Add([]byte{2})
	f.Add([]byte{5, 0xff, 0xff, 1})
	f.Add([]byte{0xff})

	f.Fuzz(func(t *testing.T, frame []byte) {
		h, _, _ := newTestHandler(t)
		response := h.Handle(frame)
		if len(response) == 0 {
			t.Fatalf("no response to %x", frame)
		}
		switch Code(response[0]) {
		case CMD_RSP_PONG, CMD_RSP_ERROR:
			if len(response) != 1 {
				t.Fatalf("payload on %v", Code(response[0]))
			}
		case CMD_GET_INST_COUNT:
			if len(response) != 1+COUNT_SIZE {
				t.Fatalf("count of %d bytes", len(response)-1)
			}
		default:
			t.Fatalf("response %v", Code(response[0]))
		}
	})
}
