package io

import (
	"iter"
	"maps"
	"sync"
)

// LED_TOGGLE written to the LED inverts it; any other value sets it from bit 0.
const LED_TOGGLE = 0xff

// Led is a single indicator LED.
type Led struct {
	OnChange func(on bool) // Called after every change, if set.

	mutex sync.Mutex
	on    bool
}

var _ Peripheral = (*Led)(nil)

func (led *Led) Slots() int {
	return 1
}

func (led *Led) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"LED_TOGGLE": "0xff",
	})
}

// Load returns 1 when the LED is lit.
func (led *Led) Load(addr uint16) (value uint8, err error) {
	if led.On() {
		value = 1
	}
	return
}

// Store sets or toggles the LED.
func (led *Led) Store(addr uint16, value uint8) (err error) {
	led.mutex.Lock()
	prior := led.on
	if value == LED_TOGGLE {
		led.on = !led.on
	} else {
		led.on = (value & 1) == 1
	}
	on := led.on
	led.mutex.Unlock()

	if on != prior && led.OnChange != nil {
		led.OnChange(on)
	}
	return
}

// On reports whether the LED is lit.
func (led *Led) On() bool {
	led.mutex.Lock()
	defer led.mutex.Unlock()

	return led.on
}
