package memory

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrOutOfRange = errors.New(f("write out of range"))
	ErrTrapPage   = errors.New(f("trap page overlaps vectors"))
	ErrTrapFault  = errors.New(f("trap fault"))
)

// ErrTrap records a handler failure at a trapped address.
type ErrTrap struct {
	Address   uint16
	Direction Direction
	Err       error
}

func (err *ErrTrap) Error() string {
	return f("%v %v %v", err.Direction, translate.Hex(err.Address), err.Err)
}

func (err *ErrTrap) Unwrap() []error {
	return []error{ErrTrapFault, err.Err}
}
