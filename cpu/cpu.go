package cpu

import (
	"fmt"
)

// Status register bits.
const (
	FLAG_CARRY     = 0x01
	FLAG_ZERO      = 0x02
	FLAG_INTERRUPT = 0x04
	FLAG_DECIMAL   = 0x08
	FLAG_BREAK     = 0x10
	FLAG_CONSTANT  = 0x20
	FLAG_OVERFLOW  = 0x40
	FLAG_NEGATIVE  = 0x80
)

// Core is one CPU as the controller drives it.
type Core interface {
	// Step executes exactly one instruction.
	Step() (err error)
	// Reset reloads the program counter from the reset vector.
	Reset() (err error)
	// Registers returns the current register file.
	Registers() Registers
}

// Registers is the register and flag surface of the CPU.
type Registers struct {
	PC uint16
	A  uint8
	X  uint8
	Y  uint8
	SP uint8

	Carry     bool
	Zero      bool
	Interrupt bool
	Decimal   bool
	Overflow  bool
	Negative  bool
}

// Status packs the flags into the processor status byte.
func (reg Registers) Status() (status uint8) {
	status = FLAG_CONSTANT
	for _, flag := range []struct {
		set bool
		bit uint8
	}{
		{reg.Carry, FLAG_CARRY},
		{reg.Zero, FLAG_ZERO},
		{reg.Interrupt, FLAG_INTERRUPT},
		{reg.Decimal, FLAG_DECIMAL},
		{reg.Overflow, FLAG_OVERFLOW},
		{reg.Negative, FLAG_NEGATIVE},
	} {
		if flag.set {
			status |= flag.bit
		}
	}
	return
}

// String returns the register file as the monitor prints it.
func (reg Registers) String() string {
	return fmt.Sprintf("PC:%04X A:%02X X:%02X Y:%02X SP:%02X P:%02X",
		reg.PC, reg.A, reg.X, reg.Y, reg.SP, reg.Status())
}
