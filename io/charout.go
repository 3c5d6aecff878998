package io

import (
	"iter"
	"maps"
	"strings"
	"sync"
)

// CHAROUT_LINE is the longest line buffered before a forced flush.
const CHAROUT_LINE = 120

// CharOut collects bytes written by the CPU into lines of text.
type CharOut struct {
	Output func(line string) // Receives each completed line, without the newline.

	mutex sync.Mutex
	line  strings.Builder
}

var _ Peripheral = (*CharOut)(nil)

func (co *CharOut) Slots() int {
	return 1
}

func (co *CharOut) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{})
}

func (co *CharOut) Store(addr uint16, value uint8) (err error) {
	co.mutex.Lock()
	var line string
	flush := false
	switch value {
	case '\r':
	case '\n':
		flush = true
	default:
		co.line.WriteByte(value)
		flush = co.line.Len() >= CHAROUT_LINE
	}
	if flush {
		line = co.line.String()
		co.line.Reset()
	}
	co.mutex.Unlock()

	if flush && co.Output != nil {
		co.Output(line)
	}
	return
}

// Pending returns the text of the unfinished line.
func (co *CharOut) Pending() string {
	co.mutex.Lock()
	defer co.mutex.Unlock()

	return co.line.String()
}
