package io

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	// Peripheral errors
	ErrPortInvalid = errors.New(f("port invalid"))
	ErrPinsFault   = errors.New(f("pins fault"))
)
