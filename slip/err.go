package slip

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrMalformed = errors.New(f("malformed escape"))
	ErrOverflow  = errors.New(f("frame exceeds capacity"))
	ErrChecksum  = errors.New(f("checksum mismatch"))
)
