package io

import (
	"fmt"
	"iter"
	"maps"
)

// Register offsets of the parallel port adapter.
const (
	VIA_PORTB = 0 // Port B value.
	VIA_PORTA = 1 // Port A value.
	VIA_DDRB  = 2 // Port B direction; set bits are outputs.
	VIA_DDRA  = 3 // Port A direction; set bits are outputs.
	VIA_SIZE  = 4
)

// Via is a two-port parallel adapter in the manner of a 6522: two value
// registers and two direction registers. The register is selected by the
// low two address bits, so the device must sit on a 4-slot boundary.
type Via struct {
	Pins Pins // Pin sink. With no sink the ports read as all-low.

	direction [2]uint8
	output    [2]uint8
}

var _ Peripheral = (*Via)(nil)

// Slots used by the VIA.
func (via *Via) Slots() int {
	return VIA_SIZE
}

// Defines returns the register offsets.
func (via *Via) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"VIA_PORTB": fmt.Sprintf("%d", VIA_PORTB),
		"VIA_PORTA": fmt.Sprintf("%d", VIA_PORTA),
		"VIA_DDRB":  fmt.Sprintf("%d", VIA_DDRB),
		"VIA_DDRA":  fmt.Sprintf("%d", VIA_DDRA),
	})
}

// Load reads a register. Port reads return the output latch on output pins
// and the sampled level on input pins.
func (via *Via) Load(addr uint16) (value uint8, err error) {
	switch addr & 0x03 {
	case VIA_PORTB:
		value, err = via.sample(PORT_B)
	case VIA_PORTA:
		value, err = via.sample(PORT_A)
	case VIA_DDRB:
		value = via.direction[PORT_B]
	case VIA_DDRA:
		value = via.direction[PORT_A]
	}
	return
}

func (via *Via) sample(port Port) (value uint8, err error) {
	var levels uint8
	if via.Pins != nil {
		levels, err = via.Pins.Levels(port)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrPinsFault, err)
			return
		}
	}

	dir := via.direction[port]
	value = (via.output[port] & dir) | (levels & ^dir)
	return
}

// Store writes a register and drives the pin sink.
func (via *Via) Store(addr uint16, value uint8) (err error) {
	var port Port
	switch addr & 0x03 {
	case VIA_PORTB:
		port = PORT_B
		via.output[port] = value
		if via.Pins != nil {
			err = via.Pins.SetLevels(port, value)
		}
	case VIA_PORTA:
		port = PORT_A
		via.output[port] = value
		if via.Pins != nil {
			err = via.Pins.SetLevels(port, value)
		}
	case VIA_DDRB:
		port = PORT_B
		via.direction[port] = value
		if via.Pins != nil {
			err = via.Pins.SetDirection(port, value)
		}
	case VIA_DDRA:
		port = PORT_A
		via.direction[port] = value
		if via.Pins != nil {
			err = via.Pins.SetDirection(port, value)
		}
	}

	if err != nil {
		err = fmt.Errorf("%w: port %v: %w", ErrPinsFault, port, err)
	}
	return
}

// Output returns the output latch of a port.
func (via *Via) Output(port Port) uint8 {
	if port != PORT_A && port != PORT_B {
		return 0
	}
	return via.output[port]
}
