// Package memory implements the 64KiB address space seen by the board CPU.
//
// One 256-byte page of the space is the trap page: each address in it may be
// bound to a read handler and a write handler, and accesses to a bound address
// are dispatched to the handler instead of plain storage. The two reset vector
// bytes always read back as the configured entry point.
package memory

import (
	"log"
	"sync"

	"github.com/ezrec/bitboard/translate"
)

// Memory map constants.
const (
	MEMORY_SIZE  = 1 << 16
	PAGE_SIZE    = 0x100
	PAGE_MASK    = 0xff00
	ZERO_PAGE    = 0x0000
	STACK_PAGE   = 0x0100
	RAM_BASE     = 0x0200
	TRAP_PAGE    = 0x7f00 // Default trap page.
	PROGRAM_BASE = 0x8000
	NMI_VECTOR   = 0xfffa
	RESET_VECTOR = 0xfffc
	IRQ_VECTOR   = 0xfffe
	ENTRY        = PROGRAM_BASE // Default entry point.
)

// Direction of a memory access or handler binding.
type Direction int

const (
	DIR_NONE  = Direction(0)
	DIR_READ  = Direction(1)
	DIR_WRITE = Direction(2)
)

func (dir Direction) String() string {
	switch dir {
	case DIR_READ:
		return "read"
	case DIR_WRITE:
		return "write"
	}
	return "-"
}

// ReadHandler services reads of a trapped address.
type ReadHandler interface {
	Load(addr uint16) (value uint8, err error)
}

// WriteHandler services writes to a trapped address.
type WriteHandler interface {
	Store(addr uint16, value uint8) (err error)
}

// ReadFunc adapts a function to a ReadHandler.
type ReadFunc func(addr uint16) (uint8, error)

func (fn ReadFunc) Load(addr uint16) (uint8, error) {
	return fn(addr)
}

// WriteFunc adapts a function to a WriteHandler.
type WriteFunc func(addr uint16, value uint8) error

func (fn WriteFunc) Store(addr uint16, value uint8) error {
	return fn(addr, value)
}

// Access is the most recent CPU memory access.
type Access struct {
	Address uint16
	Data    uint8
	Mode    Direction
}

// Memory is the address space. It is safe for concurrent use; the lock is
// held for a single access and released before a handler is invoked.
type Memory struct {
	Verbose bool // If set, logs handler bindings.

	mutex    sync.Mutex
	data     [MEMORY_SIZE]uint8
	entry    uint16
	trapPage uint16
	readers  [PAGE_SIZE]ReadHandler
	writers  [PAGE_SIZE]WriteHandler
	access   Access
	faults   int
}

// New creates an address space whose reset vector points at entry, with the
// trap page at page number trapPage (the high byte of its addresses).
func New(entry uint16, trapPage uint8) (mem *Memory, err error) {
	if uint16(trapPage)<<8 == RESET_VECTOR&PAGE_MASK {
		err = ErrTrapPage
		return
	}

	mem = &Memory{
		entry:    entry,
		trapPage: uint16(trapPage) << 8,
	}
	mem.data[RESET_VECTOR] = uint8(entry)
	mem.data[RESET_VECTOR+1] = uint8(entry >> 8)

	return
}

// Entry returns the configured entry point.
func (mem *Memory) Entry() uint16 {
	return mem.entry
}

// TrapPage returns the base address of the trap page.
func (mem *Memory) TrapPage() uint16 {
	return mem.trapPage
}

func (mem *Memory) trapped(addr uint16) bool {
	return addr&PAGE_MASK == mem.trapPage
}

// plain returns stored data. Caller holds the lock.
func (mem *Memory) plain(addr uint16) uint8 {
	switch addr {
	case RESET_VECTOR:
		return uint8(mem.entry)
	case RESET_VECTOR + 1:
		return uint8(mem.entry >> 8)
	}
	return mem.data[addr]
}

// SetRead binds a read handler to a trap slot. A nil handler unbinds it.
func (mem *Memory) SetRead(slot uint8, handler ReadHandler) {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	mem.readers[slot] = handler
	if mem.Verbose {
		log.Printf("memory: read %v bound", translate.Hex(mem.trapPage|uint16(slot)))
	}
}

// SetWrite binds a write handler to a trap slot. A nil handler unbinds it.
// Bound writes are handler-only: plain storage under the slot is untouched.
func (mem *Memory) SetWrite(slot uint8, handler WriteHandler) {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	mem.writers[slot] = handler
	if mem.Verbose {
		log.Printf("memory: write %v bound", translate.Hex(mem.trapPage|uint16(slot)))
	}
}

// Register binds handler in the given direction. The handler must implement
// ReadHandler for DIR_READ and WriteHandler for DIR_WRITE; ok is false
// otherwise and nothing is bound.
func (mem *Memory) Register(slot uint8, dir Direction, handler any) (ok bool) {
	switch dir {
	case DIR_READ:
		var rh ReadHandler
		rh, ok = handler.(ReadHandler)
		if ok {
			mem.SetRead(slot, rh)
		}
	case DIR_WRITE:
		var wh WriteHandler
		wh, ok = handler.(WriteHandler)
		if ok {
			mem.SetWrite(slot, wh)
		}
	}
	return
}

// SetReadBlock binds a read handler to count consecutive slots.
func (mem *Memory) SetReadBlock(slot uint8, count int, handler ReadHandler) {
	for n := range count {
		mem.SetRead(slot+uint8(n), handler)
	}
}

// SetWriteBlock binds a write handler to count consecutive slots.
func (mem *Memory) SetWriteBlock(slot uint8, count int, handler WriteHandler) {
	for n := range count {
		mem.SetWrite(slot+uint8(n), handler)
	}
}

// Attach binds device to count consecutive slots in every direction it
// implements.
func (mem *Memory) Attach(slot uint8, count int, device any) {
	if rh, ok := device.(ReadHandler); ok {
		mem.SetReadBlock(slot, count, rh)
	}
	if wh, ok := device.(WriteHandler); ok {
		mem.SetWriteBlock(slot, count, wh)
	}
}

func (mem *Memory) fault(err error) {
	log.Printf("memory: %v", err)

	mem.mutex.Lock()
	mem.faults++
	mem.mutex.Unlock()
}

// Faults returns the number of handler failures seen.
func (mem *Memory) Faults() int {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	return mem.faults
}

// Read a byte as the CPU sees it.
func (mem *Memory) Read(addr uint16) (value uint8) {
	mem.mutex.Lock()
	var handler ReadHandler
	if mem.trapped(addr) {
		handler = mem.readers[addr&0xff]
	}
	if handler == nil {
		value = mem.plain(addr)
		mem.access = Access{Address: addr, Data: value, Mode: DIR_READ}
		mem.mutex.Unlock()
		return
	}
	mem.mutex.Unlock()

	value, err := handler.Load(addr)
	if err != nil {
		mem.fault(&ErrTrap{Address: addr, Direction: DIR_READ, Err: err})
		value = 0
	}

	mem.mutex.Lock()
	mem.access = Access{Address: addr, Data: value, Mode: DIR_READ}
	mem.mutex.Unlock()

	return
}

// Write a byte as the CPU sees it.
func (mem *Memory) Write(addr uint16, value uint8) {
	mem.mutex.Lock()
	mem.access = Access{Address: addr, Data: value, Mode: DIR_WRITE}
	var handler WriteHandler
	if mem.trapped(addr) {
		handler = mem.writers[addr&0xff]
	}
	if handler == nil {
		mem.data[addr] = value
		mem.mutex.Unlock()
		return
	}
	mem.mutex.Unlock()

	err := handler.Store(addr, value)
	if err != nil {
		mem.fault(&ErrTrap{Address: addr, Direction: DIR_WRITE, Err: err})
	}
}

// Load copies data into plain storage starting at addr, bypassing handlers.
// Nothing is written if the data would run past the end of the space.
func (mem *Memory) Load(addr uint16, data []byte) (err error) {
	if int(addr)+len(data) > MEMORY_SIZE {
		err = ErrOutOfRange
		return
	}

	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	copy(mem.data[addr:], data)

	return
}

// Peek returns plain storage at addr without handler dispatch.
func (mem *Memory) Peek(addr uint16) uint8 {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	return mem.plain(addr)
}

// LastAccess returns the most recent CPU access.
func (mem *Memory) LastAccess() Access {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	return mem.access
}

// The Load and Store methods below form the memory interface of the 6502
// engine.

func (mem *Memory) LoadByte(addr uint16) byte {
	return mem.Read(addr)
}

func (mem *Memory) LoadBytes(addr uint16, b []byte) {
	for n := range b {
		b[n] = mem.Read(addr + uint16(n))
	}
}

func (mem *Memory) LoadAddress(addr uint16) uint16 {
	lo := mem.Read(addr)
	hi := mem.Read(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

func (mem *Memory) StoreByte(addr uint16, v byte) {
	mem.Write(addr, v)
}

func (mem *Memory) StoreBytes(addr uint16, b []byte) {
	for n, v := range b {
		mem.Write(addr+uint16(n), v)
	}
}

func (mem *Memory) StoreAddress(addr uint16, v uint16) {
	mem.Write(addr, uint8(v))
	mem.Write(addr+1, uint8(v>>8))
}
