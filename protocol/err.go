package protocol

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrInvalidCommand     = errors.New(f("invalid command"))
	ErrInvalidPayloadSize = errors.New(f("invalid payload size"))
	ErrRemote             = errors.New(f("device reported error"))
	ErrTimeout            = errors.New(f("response timeout"))
	ErrUnexpected         = errors.New(f("unexpected response"))
)

// ErrCommand is a decode failure for a command code.
type ErrCommand struct {
	Code Code
	Err  error
}

func (err *ErrCommand) Error() string {
	return f("%v: %v", err.Code, err.Err)
}

func (err *ErrCommand) Unwrap() error {
	return err.Err
}
