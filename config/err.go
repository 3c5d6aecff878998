package config

import (
	"errors"

	"github.com/ezrec/bitboard/translate"
)

var f = translate.From

var (
	ErrConfig = errors.New(f("configuration invalid"))
	ErrKey    = errors.New(f("unknown setting"))
	ErrType   = errors.New(f("setting has wrong type"))
	ErrValue  = errors.New(f("setting out of range"))
)

// ErrSetting is a problem with one named setting.
type ErrSetting struct {
	Name string
	Err  error
}

func (err *ErrSetting) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err *ErrSetting) Unwrap() []error {
	return []error{ErrConfig, err.Err}
}
