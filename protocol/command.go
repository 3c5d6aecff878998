// Package protocol implements the board command protocol: decoding request
// frames, applying them to the board, and encoding the response frames.
//
// Frame layout, after SLIP unescaping:
//
//	byte 0:  command code
//	byte 1…: payload
//
// WriteMemory carries a little-endian address followed by the bytes to
// store. The count response carries the low 32 bits of the instruction
// counter, little-endian.
package protocol

import (
	"encoding/binary"
)

// Command is a decoded frame.
type Command interface {
	// Code of the command.
	Code() Code
	// Append the encoded frame to buf.
	Append(buf []byte) []byte
}

type Ping struct{}

type Start struct{}

type Stop struct{}

type StepOnce struct{}

type GetInstructionCount struct{}

// WriteMemory stores Data starting at Address.
type WriteMemory struct {
	Address uint16
	Data    []byte
}

// Log is operator text.
type Log struct {
	Text string
}

// Nop is a recognized code with no request meaning: None, Error and Pong.
type Nop struct {
	Tag Code
}

func (Ping) Code() Code                { return CMD_REQ_PING }
func (Start) Code() Code               { return CMD_START_EMU }
func (Stop) Code() Code                { return CMD_STOP_EMU }
func (StepOnce) Code() Code            { return CMD_STEP_EMU }
func (GetInstructionCount) Code() Code { return CMD_GET_INST_COUNT }
func (WriteMemory) Code() Code         { return CMD_WRITE_MEM }
func (Log) Code() Code                 { return CMD_LOG }
func (cmd Nop) Code() Code             { return cmd.Tag }

func (cmd Ping) Append(buf []byte) []byte                { return append(buf, byte(cmd.Code())) }
func (cmd Start) Append(buf []byte) []byte               { return append(buf, byte(cmd.Code())) }
func (cmd Stop) Append(buf []byte) []byte                { return append(buf, byte(cmd.Code())) }
func (cmd StepOnce) Append(buf []byte) []byte            { return append(buf, byte(cmd.Code())) }
func (cmd GetInstructionCount) Append(buf []byte) []byte { return append(buf, byte(cmd.Code())) }
func (cmd Nop) Append(buf []byte) []byte                 { return append(buf, byte(cmd.Code())) }

func (cmd WriteMemory) Append(buf []byte) []byte {
	buf = append(buf, byte(cmd.Code()))
	buf = binary.LittleEndian.AppendUint16(buf, cmd.Address)
	return append(buf, cmd.Data...)
}

func (cmd Log) Append(buf []byte) []byte {
	buf = append(buf, byte(cmd.Code()))
	return append(buf, cmd.Text...)
}

// Encode returns the frame for cmd.
func Encode(cmd Command) []byte {
	return cmd.Append(nil)
}

// Decode a request frame. The payload length is validated before it is
// read; WriteMemory.Data aliases frame.
func Decode(frame []byte) (cmd Command, err error) {
	if len(frame) == 0 {
		err = ErrInvalidCommand
		return
	}

	code := Code(frame[0])
	payload := frame[1:]

	switch code {
	case CMD_NONE, CMD_RSP_ERROR, CMD_RSP_PONG:
		cmd = Nop{Tag: code}
		return
	case CMD_LOG:
		cmd = Log{Text: string(payload)}
		return
	case CMD_WRITE_MEM:
		if len(payload) <= WRITE_MEM_HEADER {
			err = &ErrCommand{Code: code, Err: ErrInvalidPayloadSize}
			return
		}
		cmd = WriteMemory{
			Address: binary.LittleEndian.Uint16(payload),
			Data:    payload[WRITE_MEM_HEADER:],
		}
		return
	case CMD_REQ_PING:
		cmd = Ping{}
	case CMD_START_EMU:
		cmd = Start{}
	case CMD_STOP_EMU:
		cmd = Stop{}
	case CMD_STEP_EMU:
		cmd = StepOnce{}
	case CMD_GET_INST_COUNT:
		cmd = GetInstructionCount{}
	default:
		err = &ErrCommand{Code: code, Err: ErrInvalidCommand}
		return
	}

	if len(payload) != 0 {
		cmd = nil
		err = &ErrCommand{Code: code, Err: ErrInvalidPayloadSize}
	}

	return
}

// Pong returns the success response.
func Pong() []byte {
	return []byte{byte(CMD_RSP_PONG)}
}

// Error returns the failure response.
func Error() []byte {
	return []byte{byte(CMD_RSP_ERROR)}
}

// Count returns the instruction count response.
func Count(count uint64) []byte {
	buf := []byte{byte(CMD_GET_INST_COUNT)}
	return binary.LittleEndian.AppendUint32(buf, uint32(count))
}
