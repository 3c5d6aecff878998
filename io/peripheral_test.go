package io

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/bitboard/memory"
)

func newTestMemory(t *testing.T) *memory.Memory {
	mem, err := memory.New(memory.ENTRY, memory.TRAP_PAGE>>8)
	assert.NoError(t, err)
	return mem
}

func TestViaPorts(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t)
	pins := &Latch{}
	via := &Via{Pins: pins}
	Attach(mem, SLOT_VIA, via)

	base := uint16(memory.TRAP_PAGE | SLOT_VIA)

	// Port A: low nibble out, high nibble in.
	mem.Write(base+VIA_DDRA, 0x0f)
	assert.Equal(uint8(0x0f), pins.Direction(PORT_A))
	assert.Equal(uint8(0x0f), mem.Read(base+VIA_DDRA))

	pins.Drive(PORT_A, 0xa0)
	mem.Write(base+VIA_PORTA, 0x05)
	assert.Equal(uint8(0xa5), mem.Read(base+VIA_PORTA))

	levels, err := pins.Levels(PORT_A)
	assert.NoError(err)
	assert.Equal(uint8(0xa5), levels)

	// Port B: all outputs.
	mem.Write(base+VIA_DDRB, 0xff)
	mem.Write(base+VIA_PORTB, 0x3c)
	assert.Equal(uint8(0x3c), mem.Read(base+VIA_PORTB))
	assert.Equal(uint8(0x3c), via.Output(PORT_B))

	// Storage beneath the registers is untouched.
	assert.Equal(uint8(0), mem.Peek(base+VIA_PORTB))
	assert.Equal(0, mem.Faults())
}

func TestViaNoPins(t *testing.T) {
	assert := assert.New(t)

	via := &Via{}
	assert.NoError(via.Store(VIA_DDRB, 0xf0))
	assert.NoError(via.Store(VIA_PORTB, 0xff))

	value, err := via.Load(VIA_PORTB)
	assert.NoError(err)
	assert.Equal(uint8(0xf0), value)
}

type brokenPins struct{}

var errBroken = errors.New("broken")

func (brokenPins) SetDirection(Port, uint8) error { return errBroken }
func (brokenPins) SetLevels(Port, uint8) error    { return errBroken }
func (brokenPins) Levels(Port) (uint8, error)     { return 0, errBroken }

func TestViaFault(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t)
	Attach(mem, SLOT_VIA, &Via{Pins: brokenPins{}})

	mem.Write(memory.TRAP_PAGE|VIA_PORTA, 1)
	assert.Equal(uint8(0), mem.Read(memory.TRAP_PAGE|VIA_PORTA))
	assert.Equal(2, mem.Faults())

	err := (&Via{Pins: brokenPins{}}).Store(VIA_DDRA, 1)
	assert.ErrorIs(err, ErrPinsFault)
	assert.ErrorIs(err, errBroken)
}

func TestLatchInvalidPort(t *testing.T) {
	assert := assert.New(t)

	latch := &Latch{}
	assert.ErrorIs(latch.SetDirection(Port(7), 1), ErrPortInvalid)
	assert.ErrorIs(latch.SetLevels(Port(7), 1), ErrPortInvalid)
	_, err := latch.Levels(Port(7))
	assert.ErrorIs(err, ErrPortInvalid)
}

func TestLed(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t)

	var changes []bool
	led := &Led{OnChange: func(on bool) { changes = append(changes, on) }}
	Attach(mem, SLOT_LED, led)

	addr := uint16(memory.TRAP_PAGE | SLOT_LED)
	assert.Equal(uint8(0), mem.Read(addr))

	mem.Write(addr, 1)
	assert.True(led.On())
	assert.Equal(uint8(1), mem.Read(addr))

	mem.Write(addr, 3)
	assert.True(led.On())

	mem.Write(addr, LED_TOGGLE)
	assert.False(led.On())

	mem.Write(addr, LED_TOGGLE)
	assert.True(led.On())

	assert.Equal([]bool{true, false, true}, changes)
}

func TestDelay(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t)

	var slept []time.Duration
	Attach(mem, SLOT_DELAY, &Delay{Sleep: func(d time.Duration) { slept = append(slept, d) }})

	addr := uint16(memory.TRAP_PAGE | SLOT_DELAY)
	mem.Write(addr, 0)
	mem.Write(addr, 25)

	assert.Equal([]time.Duration{25 * time.Millisecond}, slept)

	// Write-only: reads fall through to storage.
	assert.Equal(uint8(0), mem.Read(addr))
}

func TestCharOut(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t)

	var lines []string
	co := &CharOut{Output: func(line string) { lines = append(lines, line) }}
	Attach(mem, SLOT_CHAROUT, co)

	addr := uint16(memory.TRAP_PAGE | SLOT_CHAROUT)
	for _, c := range []byte("HELLO\r\nWOR") {
		mem.Write(addr, c)
	}

	assert.Equal([]string{"HELLO"}, lines)
	assert.Equal("WOR", co.Pending())

	for range CHAROUT_LINE {
		mem.Write(addr, 'x')
	}
	assert.Len(lines, 2)
	assert.Len(lines[1], CHAROUT_LINE)
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for _, device := range []Peripheral{&Via{}, &Led{}, &Delay{}, &CharOut{}} {
		for key, value := range device.Defines() {
			defines[key] = value
		}
	}

	assert.Equal("1", defines["VIA_PORTA"])
	assert.Equal("3", defines["VIA_DDRA"])
	assert.Equal("0xff", defines["LED_TOGGLE"])
}
