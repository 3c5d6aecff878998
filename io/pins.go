package io

import (
	"log"
	"sync"
)

// Port selects one of the two 8-bit parallel ports.
type Port int

const (
	PORT_A = Port(0)
	PORT_B = Port(1)
)

func (port Port) String() string {
	switch port {
	case PORT_A:
		return "A"
	case PORT_B:
		return "B"
	}
	return "?"
}

// Pins is the GPIO sink behind the parallel ports.
type Pins interface {
	// SetDirection sets the output pins of a port; set bits are outputs.
	SetDirection(port Port, output uint8) (err error)
	// SetLevels drives the output pins of a port.
	SetLevels(port Port, value uint8) (err error)
	// Levels samples the pin levels of a port.
	Levels(port Port) (value uint8, err error)
}

// Latch is an in-memory Pins implementation. External inputs are injected
// with Drive.
type Latch struct {
	Verbose bool // If set, logs pin changes.

	mutex     sync.Mutex
	direction [2]uint8
	output    [2]uint8
	input     [2]uint8
}

var _ Pins = (*Latch)(nil)

func (latch *Latch) SetDirection(port Port, output uint8) (err error) {
	if port != PORT_A && port != PORT_B {
		err = ErrPortInvalid
		return
	}

	latch.mutex.Lock()
	defer latch.mutex.Unlock()

	latch.direction[port] = output
	if latch.Verbose {
		log.Printf("io: port %v direction %08b", port, output)
	}
	return
}

func (latch *Latch) SetLevels(port Port, value uint8) (err error) {
	if port != PORT_A && port != PORT_B {
		err = ErrPortInvalid
		return
	}

	latch.mutex.Lock()
	defer latch.mutex.Unlock()

	latch.output[port] = value
	if latch.Verbose {
		log.Printf("io: port %v levels %08b", port, value)
	}
	return
}

// Levels returns driven levels on output pins and injected levels on inputs.
func (latch *Latch) Levels(port Port) (value uint8, err error) {
	if port != PORT_A && port != PORT_B {
		err = ErrPortInvalid
		return
	}

	latch.mutex.Lock()
	defer latch.mutex.Unlock()

	dir := latch.direction[port]
	value = (latch.output[port] & dir) | (latch.input[port] & ^dir)
	return
}

// Drive sets the external levels seen on the input pins of a port.
func (latch *Latch) Drive(port Port, value uint8) {
	if port != PORT_A && port != PORT_B {
		return
	}

	latch.mutex.Lock()
	defer latch.mutex.Unlock()

	latch.input[port] = value
}

// Direction returns the output mask of a port.
func (latch *Latch) Direction(port Port) uint8 {
	if port != PORT_A && port != PORT_B {
		return 0
	}

	latch.mutex.Lock()
	defer latch.mutex.Unlock()

	return latch.direction[port]
}
