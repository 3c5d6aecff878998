package protocol

// Code is the command code in the first byte of every frame.
type Code uint8

//go:generate go tool stringer -linecomment -type=Code
const (
	CMD_NONE           = Code(0) // none
	CMD_RSP_ERROR      = Code(1) // error
	CMD_REQ_PING       = Code(2) // ping
	CMD_RSP_PONG       = Code(3) // pong
	CMD_LOG            = Code(4) // log
	CMD_WRITE_MEM      = Code(5) // write
	CMD_START_EMU      = Code(6) // start
	CMD_STOP_EMU       = Code(7) // stop
	CMD_STEP_EMU       = Code(8) // step
	CMD_GET_INST_COUNT = Code(9) // count
)

const (
	WRITE_MEM_HEADER = 2 // Address bytes before WriteMemory data.
	COUNT_SIZE       = 4 // Instruction count bytes in a count response.
)
