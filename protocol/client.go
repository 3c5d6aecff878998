package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"time"

	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/slip"
)

const (
	CLIENT_TIMEOUT = time.Second // Default response timeout.
	CLIENT_CHUNK   = 512         // Default WriteMemory data bytes per frame.
)

// Client issues commands to a board over a byte stream, one at a time.
// Reads from the stream are expected to return after a bounded wait, with
// zero bytes if nothing arrived.
type Client struct {
	Verbose bool              // If set, logs every exchange.
	Timeout time.Duration     // Time to wait for a response.
	Chunk   int               // Maximum WriteMemory data bytes per frame.
	OnLog   func(text string) // Receives Log frames from the board.

	port    io.ReadWriter
	enc     *slip.Encoder
	dec     *slip.Decoder
	pending []byte
	buffer  []byte
}

// NewClient returns a client on port. If checksum is set, frames in both
// directions carry a SLIP checksum.
func NewClient(port io.ReadWriter, checksum bool) (client *Client) {
	client = &Client{
		Timeout: CLIENT_TIMEOUT,
		Chunk:   CLIENT_CHUNK,
		port:    port,
		enc:     slip.NewEncoder(port),
		dec:     slip.NewDecoder(0),
		buffer:  make([]byte, 256),
	}
	client.enc.Checksum = checksum
	client.dec.Checksum = checksum
	return
}

func (client *Client) receive() (frame []byte, err error) {
	deadline := time.Now().Add(client.Timeout)
	for {
		n := client.dec.Push(client.pending)
		client.pending = client.pending[n:]
		if client.dec.Ready() {
			frame = bytes.Clone(client.dec.Frame())
			client.dec.Reset()
			return
		}

		if time.Now().After(deadline) {
			err = ErrTimeout
			return
		}

		n, err = client.port.Read(client.buffer)
		if err != nil {
			return
		}
		client.pending = append(client.pending, client.buffer[:n]...)
	}
}

// Do sends cmd and returns the response frame. Log frames arriving first are
// passed to OnLog.
func (client *Client) Do(cmd Command) (response []byte, err error) {
	if client.Verbose {
		log.Printf("client: %v", cmd.Code())
	}

	err = client.enc.Frame(Encode(cmd))
	if err != nil {
		return
	}

	for {
		response, err = client.receive()
		if err != nil {
			return
		}
		if Code(response[0]) != CMD_LOG {
			break
		}
		if client.OnLog != nil {
			client.OnLog(string(response[1:]))
		}
	}

	if client.Verbose {
		log.Printf("client: %v response", Code(response[0]))
	}

	return
}

// Poll waits for one unsolicited Log frame and passes it to OnLog. It
// returns ErrTimeout if none arrives.
func (client *Client) Poll() (err error) {
	frame, err := client.receive()
	if err != nil {
		return
	}

	code := Code(frame[0])
	if code != CMD_LOG {
		err = &ErrCommand{Code: code, Err: ErrUnexpected}
		return
	}
	if client.OnLog != nil {
		client.OnLog(string(frame[1:]))
	}
	return
}

func pong(response []byte) (err error) {
	switch code := Code(response[0]); code {
	case CMD_RSP_PONG:
	case CMD_RSP_ERROR:
		err = ErrRemote
	default:
		err = &ErrCommand{Code: code, Err: ErrUnexpected}
	}
	return
}

func (client *Client) simple(cmd Command) (err error) {
	response, err := client.Do(cmd)
	if err != nil {
		return
	}
	err = pong(response)
	return
}

// Ping the board. A pending fault on the board is reported as ErrRemote.
func (client *Client) Ping() error {
	return client.simple(Ping{})
}

// Start the board CPU.
func (client *Client) Start() error {
	return client.simple(Start{})
}

// Stop the board CPU.
func (client *Client) Stop() error {
	return client.simple(Stop{})
}

// Step the board CPU once.
func (client *Client) Step() error {
	return client.simple(StepOnce{})
}

// Log sends operator text to the board.
func (client *Client) Log(text string) error {
	return client.simple(Log{Text: text})
}

// WriteMemory stores data at addr, in frames of at most Chunk data bytes.
// Data running past the end of the address space is memory.ErrOutOfRange,
// and nothing is sent.
func (client *Client) WriteMemory(addr uint16, data []byte) (err error) {
	if int(addr)+len(data) > memory.MEMORY_SIZE {
		err = memory.ErrOutOfRange
		return
	}

	chunk := client.Chunk
	if chunk <= 0 {
		chunk = CLIENT_CHUNK
	}

	for offset := 0; offset < len(data); offset += chunk {
		end := min(offset+chunk, len(data))
		err = client.simple(WriteMemory{
			Address: addr + uint16(offset),
			Data:    data[offset:end],
		})
		if err != nil {
			return
		}
	}

	return
}

// InstructionCount returns the low 32 bits of the board instruction counter.
func (client *Client) InstructionCount() (count uint32, err error) {
	response, err := client.Do(GetInstructionCount{})
	if err != nil {
		return
	}

	code := Code(response[0])
	switch {
	case code == CMD_GET_INST_COUNT && len(response) == 1+COUNT_SIZE:
		count = binary.LittleEndian.Uint32(response[1:])
	case code == CMD_GET_INST_COUNT:
		err = &ErrCommand{Code: code, Err: ErrInvalidPayloadSize}
	default:
		err = pong(response)
		if err == nil {
			err = &ErrCommand{Code: code, Err: ErrUnexpected}
		}
	}

	return
}
