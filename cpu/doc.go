// Package cpu defines the stepping surface of the board CPU and implements it
// for the MOS 6502.
//
// The controller only ever sees a Core: a Step that executes one whole
// instruction against the address space, a Reset that reloads the program
// counter from the reset vector, and a fixed register and flag surface for
// display. The instruction engine itself comes from github.com/beevik/go6502.
package cpu
