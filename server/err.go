package server

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrPort = errors.New(f("port failure"))
)
