package cpu

import (
	"log"

	go6502 "github.com/beevik/go6502/cpu"
	"github.com/beevik/go6502/disasm"

	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/translate"
)

// Arch selects the 6502 variant.
type Arch string

const (
	ARCH_NMOS = Arch("nmos")
	ARCH_CMOS = Arch("cmos")
)

// OP_BRK is the BRK opcode.
const OP_BRK = 0x00

// STACK_RESET is the stack pointer after a reset.
const STACK_RESET = 0xfd

// Mos6502 is a 6502 Core running against a board address space.
type Mos6502 struct {
	Verbose   bool // If set, logs every instruction.
	HaltOnBrk bool // If set, a BRK at PC faults instead of executing.

	mem    *memory.Memory
	engine *go6502.CPU
}

var _ Core = (*Mos6502)(nil)

// NewMos6502 creates a 6502 of the given architecture on mem. The core must
// be Reset before its first Step.
func NewMos6502(arch Arch, mem *memory.Memory) (core *Mos6502, err error) {
	var variant go6502.Architecture
	switch arch {
	case ARCH_NMOS:
		variant = go6502.NMOS
	case ARCH_CMOS:
		variant = go6502.CMOS
	default:
		err = ErrArch
		return
	}

	core = &Mos6502{
		mem:    mem,
		engine: go6502.NewCPU(variant, mem),
	}

	return
}

// Reset loads the program counter from the reset vector.
func (core *Mos6502) Reset() (err error) {
	pc := core.mem.LoadAddress(memory.RESET_VECTOR)

	core.engine.SetPC(pc)
	core.engine.Reg.SP = STACK_RESET
	core.engine.Reg.InterruptDisable = true
	core.engine.Reg.Decimal = false

	if core.Verbose {
		log.Printf("cpu: reset to %v", translate.Hex(pc))
	}

	return
}

// Step executes one instruction. A panic in the engine is returned as a
// hard fault.
func (core *Mos6502) Step() (err error) {
	pc := core.engine.Reg.PC

	defer func() {
		if r := recover(); r != nil {
			err = &ErrFault{PC: pc, Reason: r}
		}
	}()

	if core.HaltOnBrk && core.mem.Peek(pc) == OP_BRK {
		err = ErrBrk(pc)
		return
	}

	if core.Verbose {
		line, _ := core.Disassemble(pc)
		log.Printf("cpu: %v  %v", core.Registers(), line)
	}

	core.engine.Step()

	return
}

// Registers returns the engine registers.
func (core *Mos6502) Registers() Registers {
	reg := &core.engine.Reg
	return Registers{
		PC:        reg.PC,
		A:         reg.A,
		X:         reg.X,
		Y:         reg.Y,
		SP:        reg.SP,
		Carry:     reg.Carry,
		Zero:      reg.Zero,
		Interrupt: reg.InterruptDisable,
		Decimal:   reg.Decimal,
		Overflow:  reg.Overflow,
		Negative:  reg.Sign,
	}
}

// Cycles returns the clock cycles modelled since creation.
func (core *Mos6502) Cycles() uint64 {
	return core.engine.Cycles
}

// peeker is the address space without handler dispatch.
type peeker struct {
	mem *memory.Memory
}

func (p peeker) LoadByte(addr uint16) byte {
	return p.mem.Peek(addr)
}

func (p peeker) LoadBytes(addr uint16, b []byte) {
	for n := range b {
		b[n] = p.mem.Peek(addr + uint16(n))
	}
}

func (p peeker) LoadAddress(addr uint16) uint16 {
	return uint16(p.mem.Peek(addr)) | uint16(p.mem.Peek(addr+1))<<8
}

func (p peeker) StoreByte(uint16, byte) {}

func (p peeker) StoreBytes(uint16, []byte) {}

func (p peeker) StoreAddress(uint16, uint16) {}

// Disassemble the instruction at addr, returning it and the address of the
// next one. Trap handlers are not invoked.
func (core *Mos6502) Disassemble(addr uint16) (line string, next uint16) {
	line, next = disasm.Disassemble(peeker{core.mem}, addr)
	return
}
