// Package telemetry carries CPU state snapshots out of the stepping loop to
// an operator display.
package telemetry

import (
	"github.com/ezrec/bitboard/controller"
	"github.com/ezrec/bitboard/cpu"
	"github.com/ezrec/bitboard/memory"
)

// Value is a named register.
type Value struct {
	Name  string
	Value uint16
	Width int // Hex digits shown.
}

// Flag is a named status bit.
type Flag struct {
	Name string
	Set  bool
}

// Snapshot is the board state after one step.
type Snapshot struct {
	Count  uint64
	State  controller.RunState
	Values []Value
	Flags  []Flag
	Access memory.Access
}

// Sink receives snapshots. Update is called on the stepping loop and must
// not block.
type Sink interface {
	Update(snap Snapshot)
}

// Discard ignores all snapshots.
type Discard struct{}

func (Discard) Update(Snapshot) {}

var _ Sink = Discard{}

// FromStep builds the snapshot of a completed step.
func FromStep(step controller.Step, access memory.Access) (snap Snapshot) {
	reg := step.Registers
	status := reg.Status()

	snap = Snapshot{
		Count: step.Count,
		State: step.State,
		Values: []Value{
			{"A", uint16(reg.A), 2},
			{"X", uint16(reg.X), 2},
			{"Y", uint16(reg.Y), 2},
			{"SP", uint16(reg.SP), 2},
			{"PC", reg.PC, 4},
		},
		Access: access,
	}

	for _, bit := range []struct {
		name string
		mask uint8
	}{
		{"N", cpu.FLAG_NEGATIVE},
		{"V", cpu.FLAG_OVERFLOW},
		{"B", cpu.FLAG_BREAK},
		{"D", cpu.FLAG_DECIMAL},
		{"I", cpu.FLAG_INTERRUPT},
		{"Z", cpu.FLAG_ZERO},
		{"C", cpu.FLAG_CARRY},
	} {
		snap.Flags = append(snap.Flags, Flag{Name: bit.name, Set: status&bit.mask != 0})
	}

	return
}

// Value returns the named register, and whether it is present.
func (snap Snapshot) Value(name string) (value uint16, ok bool) {
	for _, v := range snap.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return
}
