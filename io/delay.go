package io

import (
	"iter"
	"maps"
	"time"
)

// Delay blocks the CPU for the number of milliseconds written to it.
type Delay struct {
	Sleep func(d time.Duration) // Defaults to time.Sleep.
}

var _ Peripheral = (*Delay)(nil)

func (delay *Delay) Slots() int {
	return 1
}

func (delay *Delay) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{})
}

func (delay *Delay) Store(addr uint16, value uint8) (err error) {
	if value == 0 {
		return
	}

	sleep := delay.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(time.Duration(value) * time.Millisecond)

	return
}
