// Package config loads a board description written in Starlark.
//
// A board file assigns any of the recognized globals; everything it leaves
// unset keeps its default. The board constants (memory map and peripheral
// slots) are predeclared, so a file may say
//
//	entry = ENTRY + 0x100
//	start = "stopped"
package config

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/bitboard/controller"
	"github.com/ezrec/bitboard/cpu"
	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/serial"
	"github.com/ezrec/bitboard/slip"
)

// Config describes one board.
type Config struct {
	Port           string              // Serial device; empty for none.
	Baud           int                 // Serial line rate.
	Entry          uint16              // Reset vector target.
	TrapPage       uint8               // Page number of the trap page.
	Start          controller.RunState // Run state at power on.
	Arch           cpu.Arch            // 6502 variant.
	StepsPerYield  int                 // Stepping loop quanta per yield.
	StepDelay      time.Duration       // Pause after every step.
	HaltOnBrk      bool                // Stop on BRK instead of executing it.
	Checksum       bool                // SLIP frames carry a checksum.
	FrameCapacity  int                 // Largest request frame.
	Telemetry      time.Duration       // Console refresh; zero disables.
	Program        string              // Binary image loaded at power on.
	ProgramAddress uint16              // Load address of Program.
	Verbose        bool                // Verbose logging everywhere.
}

// Default returns the configuration of an unconfigured board.
func Default() Config {
	return Config{
		Baud:           serial.BAUD,
		Entry:          memory.ENTRY,
		TrapPage:       memory.TRAP_PAGE >> 8,
		Start:          controller.STATE_RUNNING,
		Arch:           cpu.ARCH_NMOS,
		StepsPerYield:  controller.STEPS_PER_YIELD,
		FrameCapacity:  slip.CAPACITY,
		ProgramAddress: memory.PROGRAM_BASE,
	}
}

type setting func(cfg *Config, value starlark.Value) (err error)

func toInt(value starlark.Value, lo, hi int64) (v int64, err error) {
	iv, ok := value.(starlark.Int)
	if !ok {
		err = ErrType
		return
	}
	v, ok = iv.Int64()
	if !ok || v < lo || v > hi {
		err = ErrValue
	}
	return
}

func toString(value starlark.Value) (s string, err error) {
	s, ok := starlark.AsString(value)
	if !ok {
		err = ErrType
	}
	return
}

func toBool(value starlark.Value) (b bool, err error) {
	bv, ok := value.(starlark.Bool)
	if !ok {
		err = ErrType
		return
	}
	b = bool(bv)
	return
}

func intSetting(lo, hi int64, set func(cfg *Config, v int64)) setting {
	return func(cfg *Config, value starlark.Value) (err error) {
		v, err := toInt(value, lo, hi)
		if err == nil {
			set(cfg, v)
		}
		return
	}
}

func boolSetting(set func(cfg *Config, b bool)) setting {
	return func(cfg *Config, value starlark.Value) (err error) {
		b, err := toBool(value)
		if err == nil {
			set(cfg, b)
		}
		return
	}
}

func stringSetting(set func(cfg *Config, s string) error) setting {
	return func(cfg *Config, value starlark.Value) (err error) {
		s, err := toString(value)
		if err == nil {
			err = set(cfg, s)
		}
		return
	}
}

var _settings = map[string]setting{
	"port": stringSetting(func(cfg *Config, s string) error {
		cfg.Port = s
		return nil
	}),
	"baud": intSetting(1, 4_000_000, func(cfg *Config, v int64) {
		cfg.Baud = int(v)
	}),
	"entry": intSetting(0, 0xffff, func(cfg *Config, v int64) {
		cfg.Entry = uint16(v)
	}),
	"trap_page": intSetting(0, 0xfe, func(cfg *Config, v int64) {
		cfg.TrapPage = uint8(v)
	}),
	"start": stringSetting(func(cfg *Config, s string) error {
		switch s {
		case controller.STATE_RUNNING.String():
			cfg.Start = controller.STATE_RUNNING
		case controller.STATE_STOPPED.String():
			cfg.Start = controller.STATE_STOPPED
		default:
			return ErrValue
		}
		return nil
	}),
	"arch": stringSetting(func(cfg *Config, s string) error {
		switch arch := cpu.Arch(strings.ToLower(s)); arch {
		case cpu.ARCH_NMOS, cpu.ARCH_CMOS:
			cfg.Arch = arch
		default:
			return ErrValue
		}
		return nil
	}),
	"steps_per_yield": intSetting(1, 1<<20, func(cfg *Config, v int64) {
		cfg.StepsPerYield = int(v)
	}),
	"step_delay_ms": intSetting(0, 60_000, func(cfg *Config, v int64) {
		cfg.StepDelay = time.Duration(v) * time.Millisecond
	}),
	"halt_on_brk": boolSetting(func(cfg *Config, b bool) {
		cfg.HaltOnBrk = b
	}),
	"checksum": boolSetting(func(cfg *Config, b bool) {
		cfg.Checksum = b
	}),
	"frame_capacity": intSetting(slip.CHECKSUM_SIZE+1, 1<<16+16, func(cfg *Config, v int64) {
		cfg.FrameCapacity = int(v)
	}),
	"telemetry_ms": intSetting(0, 60_000, func(cfg *Config, v int64) {
		cfg.Telemetry = time.Duration(v) * time.Millisecond
	}),
	"program": stringSetting(func(cfg *Config, s string) error {
		cfg.Program = s
		return nil
	}),
	"program_address": intSetting(0, 0xffff, func(cfg *Config, v int64) {
		cfg.ProgramAddress = uint16(v)
	}),
	"verbose": boolSetting(func(cfg *Config, b bool) {
		cfg.Verbose = b
	}),
}

// Settings returns the recognized global names, sorted.
func Settings() []string {
	return slices.Sorted(maps.Keys(_settings))
}

// Load evaluates a board file over the defaults. src is as for
// starlark.ExecFile: nil reads the named file. Each define is predeclared,
// as an int if it parses as one and as a string otherwise.
func Load(name string, src any, defines iter.Seq2[string, string]) (cfg Config, err error) {
	cfg = Default()

	thread := starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			log.Printf("config: %v: %v", name, msg)
		},
	}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range defines {
		if value, perr := strconv.ParseInt(str, 0, 64); perr == nil {
			pred[key] = starlark.MakeInt64(value)
		} else {
			pred[key] = starlark.String(str)
		}
	}

	globals, err := starlark.ExecFileOptions(&opts, &thread, name, src, pred)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConfig, err)
		return
	}

	for _, key := range slices.Sorted(maps.Keys(globals)) {
		value := globals[key]
		if strings.HasPrefix(key, "_") {
			continue
		}
		if _, ok := value.(*starlark.Function); ok {
			continue
		}

		set, ok := _settings[key]
		if !ok {
			err = &ErrSetting{Name: key, Err: ErrKey}
			return
		}

		err = set(&cfg, value)
		if err != nil {
			err = &ErrSetting{Name: key, Err: err}
			return
		}
	}

	return
}
