package cpu

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	// Core errors
	ErrHardFault = errors.New(f("hard fault"))
	ErrBreak     = errors.New(f("break"))
	ErrArch      = errors.New(f("architecture unknown"))
)

// ErrFault is a hard fault raised while executing at PC.
type ErrFault struct {
	PC     uint16
	Reason any
}

func (err *ErrFault) Error() string {
	return f("hard fault at %v: %v", translate.Hex(err.PC), err.Reason)
}

func (err *ErrFault) Unwrap() error {
	return ErrHardFault
}

// ErrBrk is a BRK reached with halting enabled.
type ErrBrk uint16

func (err ErrBrk) Error() string {
	return f("break at %v", translate.Hex(uint16(err)))
}

func (err ErrBrk) Is(target error) bool {
	return target == ErrBreak
}
