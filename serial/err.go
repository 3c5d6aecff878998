package serial

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrOpen = errors.New(f("serial port open failed"))
	ErrBaud = errors.New(f("baud rate invalid"))
)
