package emulator

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrProgram = errors.New(f("program image invalid"))
)

// ErrBoot indicates which part of the board failed to come up.
type ErrBoot struct {
	Part string
	Err  error
}

func (err *ErrBoot) Error() string {
	return f("boot %v: %v", err.Part, err.Err)
}

func (err *ErrBoot) Unwrap() error {
	return err.Err
}
