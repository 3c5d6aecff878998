package protocol

import (
	"log"

	"github.com/ezrec/bitboard/translate"
)

// Memory is the address space as the protocol writes it.
type Memory interface {
	Load(addr uint16, data []byte) (err error)
}

// Controller is the execution controller as the protocol drives it.
type Controller interface {
	Start()
	Stop()
	Step()
	Count() uint64
	Fault() (err error)
}

// Handler applies request frames to a board. Handle must not be called
// concurrently with itself.
type Handler struct {
	Verbose    bool              // If set, logs every command.
	Memory     Memory            // Target of WriteMemory.
	Controller Controller        // Target of Start, Stop, Step and count.
	Log        func(text string) // Optional sink for operator Log text.
}

// Handle one request frame, returning exactly one response frame.
func (h *Handler) Handle(frame []byte) (response []byte) {
	cmd, err := Decode(frame)
	if err != nil {
		log.Printf("protocol: %v", err)
		response = Error()
		return
	}

	if h.Verbose {
		log.Printf("protocol: %v", cmd.Code())
	}

	response = Pong()

	switch cmd := cmd.(type) {
	case Ping:
		if err = h.Controller.Fault(); err != nil {
			response = Error()
		}
	case WriteMemory:
		err = h.Memory.Load(cmd.Address, cmd.Data)
		if err != nil {
			log.Printf("protocol: write %v: %v", translate.Hex(cmd.Address), err)
			response = Error()
		} else if h.Verbose {
			log.Printf("protocol: wrote %d bytes at %v", len(cmd.Data), translate.Hex(cmd.Address))
		}
	case Start:
		h.Controller.Start()
	case Stop:
		h.Controller.Stop()
	case StepOnce:
		h.Controller.Step()
	case GetInstructionCount:
		if err = h.Controller.Fault(); err != nil {
			response = Error()
		} else {
			response = Count(h.Controller.Count())
		}
	case Log:
		if h.Log != nil {
			h.Log(cmd.Text)
		}
	case Nop:
	}

	if err != nil && h.Verbose {
		log.Printf("protocol: %v: %v", cmd.Code(), err)
	}

	return
}
