// Package io provides the memory-mapped peripherals of the board.
//
// Each peripheral implements memory.ReadHandler, memory.WriteHandler or both,
// and is attached to slots of the trap page once at boot. Handlers run on
// the stepping loop only, so a handler is allowed to block.
package io

import (
	"iter"

	"github.com/ezrec/bitboard/memory"
)

// Default trap page slots of the board peripherals.
const (
	SLOT_VIA     = 0x00 // Four registers, see VIA_*.
	SLOT_LED     = 0x10
	SLOT_DELAY   = 0x11
	SLOT_CHAROUT = 0x12
)

// Peripheral is a device occupying one or more trap slots.
type Peripheral interface {
	// Slots returns the number of consecutive trap slots used.
	Slots() int
	// Defines returns the named register offsets of the device.
	Defines() iter.Seq2[string, string]
}

// Attach binds a peripheral at slot of the trap page.
func Attach(mem *memory.Memory, slot uint8, device Peripheral) {
	mem.Attach(slot, device.Slots(), device)
}
