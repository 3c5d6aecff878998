// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/bitboard/config"
	"github.com/ezrec/bitboard/controller"
	"github.com/ezrec/bitboard/cpu"
	"github.com/ezrec/bitboard/internal"
	"github.com/ezrec/bitboard/io"
	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/protocol"
	"github.com/ezrec/bitboard/server"
	"github.com/ezrec/bitboard/telemetry"
	"github.com/ezrec/bitboard/translate"
)

// address formats a 16-bit address define.
func address(value int) string {
	return fmt.Sprintf("%#06x", value)
}

// slot formats a trap slot define.
func slot(value int) string {
	return fmt.Sprintf("%#04x", value)
}

var _emulator_defines = map[string]string{
	"ZERO_PAGE":    address(memory.ZERO_PAGE),
	"STACK_PAGE":   address(memory.STACK_PAGE),
	"RAM_BASE":     address(memory.RAM_BASE),
	"TRAP_PAGE":    address(memory.TRAP_PAGE),
	"PROGRAM_BASE": address(memory.PROGRAM_BASE),
	"NMI_VECTOR":   address(memory.NMI_VECTOR),
	"RESET_VECTOR": address(memory.RESET_VECTOR),
	"IRQ_VECTOR":   address(memory.IRQ_VECTOR),
	"ENTRY":        address(memory.ENTRY),
	"SLOT_VIA":     slot(io.SLOT_VIA),
	"SLOT_LED":     slot(io.SLOT_LED),
	"SLOT_DELAY":   slot(io.SLOT_DELAY),
	"SLOT_CHAROUT": slot(io.SLOT_CHAROUT),
}

// Defines returns an iterator over all of the board defines.
func Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		(&io.Via{}).Defines(),
		(&io.Led{}).Defines(),
		(&io.Delay{}).Defines(),
		(&io.CharOut{}).Defines(),
	)
}

// runner is a telemetry sink with its own refresh loop.
type runner interface {
	Run(ctx context.Context) (err error)
}

// Emulator is a complete board: address space, peripherals, CPU, execution
// controller and protocol loop.
type Emulator struct {
	Verbose bool           // If set, enables verbose logging.
	Config  config.Config  // Configuration the board was built from.
	Sink    telemetry.Sink // Receives a snapshot after every step. Set before Run.

	*memory.Memory
	Core       *cpu.Mos6502
	Controller *controller.Controller
	Handler    *protocol.Handler
	Server     *server.Server

	Pins    io.Latch   // Pins of the VIA ports.
	Via     io.Via     // Parallel ports.
	Led     io.Led     // Indicator LED.
	Delay   io.Delay   // Millisecond delay register.
	CharOut io.CharOut // Character output, sent to the operator as Log frames.

	serving atomic.Bool
}

// NewEmulator builds and resets a board described by cfg.
func NewEmulator(cfg config.Config) (emu *Emulator, err error) {
	emu = &Emulator{
		Verbose: cfg.Verbose,
		Config:  cfg,
	}

	emu.Memory, err = memory.New(cfg.Entry, cfg.TrapPage)
	if err != nil {
		err = &ErrBoot{Part: "memory", Err: err}
		return
	}
	emu.Memory.Verbose = cfg.Verbose

	emu.Core, err = cpu.NewMos6502(cfg.Arch, emu.Memory)
	if err != nil {
		err = &ErrBoot{Part: "cpu", Err: err}
		return
	}
	emu.Core.HaltOnBrk = cfg.HaltOnBrk

	emu.Controller = controller.NewController(emu.Core, cfg.Start)
	emu.Controller.Verbose = cfg.Verbose
	emu.Controller.StepsPerYield = cfg.StepsPerYield
	emu.Controller.StepDelay = cfg.StepDelay

	emu.Handler = &protocol.Handler{
		Verbose:    cfg.Verbose,
		Memory:     emu.Memory,
		Controller: emu.Controller,
		Log: func(text string) {
			log.Printf("emulator: operator: %v", strings.TrimRight(text, "\r\n"))
		},
	}

	emu.Server = server.NewServer(emu.Handler)
	emu.Server.Verbose = cfg.Verbose
	emu.Server.Checksum = cfg.Checksum
	emu.Server.Capacity = cfg.FrameCapacity

	emu.Pins.Verbose = cfg.Verbose
	emu.Via.Pins = &emu.Pins
	emu.Led.OnChange = func(on bool) {
		if emu.Verbose {
			log.Printf("emulator: led %v", on)
		}
	}
	emu.CharOut.Output = emu.output

	io.Attach(emu.Memory, io.SLOT_VIA, &emu.Via)
	io.Attach(emu.Memory, io.SLOT_LED, &emu.Led)
	io.Attach(emu.Memory, io.SLOT_DELAY, &emu.Delay)
	io.Attach(emu.Memory, io.SLOT_CHAROUT, &emu.CharOut)

	if len(cfg.Program) != 0 {
		var data []byte
		data, err = os.ReadFile(cfg.Program)
		if err == nil {
			err = emu.Memory.Load(cfg.ProgramAddress, data)
		}
		if err != nil {
			err = &ErrBoot{Part: "program", Err: fmt.Errorf("%w: %v: %w", ErrProgram, cfg.Program, err)}
			return
		}
	}

	emu.Controller.Observe(emu.observe)

	err = emu.Core.Reset()
	if err != nil {
		err = &ErrBoot{Part: "reset", Err: err}
		return
	}

	return
}

func (emu *Emulator) observe(step controller.Step) {
	if emu.Sink != nil {
		emu.Sink.Update(telemetry.FromStep(step, emu.Memory.LastAccess()))
	}
}

// output sends a completed CharOut line to the operator, or to the local
// log when no protocol loop is running.
func (emu *Emulator) output(line string) {
	if !emu.serving.Load() {
		log.Printf("emulator: output: %v", line)
		return
	}
	if !emu.Server.Log(line + "\n") {
		log.Printf("emulator: output dropped: %v", line)
	}
}

// Reset requests a hardware reset of the CPU. The instruction count and run
// state are kept.
func (emu *Emulator) Reset() {
	emu.Controller.Reset()
}

// Log sends text to the operator.
func (emu *Emulator) Log(text string) bool {
	return emu.Server.Log(text)
}

// Run the stepping loop, and the protocol loop on port if it is not nil,
// until ctx is done or the protocol loop ends.
func (emu *Emulator) Run(ctx context.Context, port server.Port) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return emu.Controller.Run(gctx)
	})

	if port != nil {
		emu.serving.Store(true)
		group.Go(func() error {
			defer cancel()
			defer emu.serving.Store(false)
			return emu.Server.Serve(gctx, port)
		})
	}

	if sink, ok := emu.Sink.(runner); ok {
		group.Go(func() error {
			return sink.Run(gctx)
		})
	}

	if emu.Verbose {
		log.Printf("emulator: running, entry %v", translate.Hex(emu.Memory.Entry()))
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	return
}

// Close the emulator, flushing any unfinished output line.
func (emu *Emulator) Close() (err error) {
	emu.Controller.Observe(nil)

	if pending := emu.CharOut.Pending(); len(pending) != 0 {
		emu.CharOut.Store(0, '\n')
	}

	return
}
