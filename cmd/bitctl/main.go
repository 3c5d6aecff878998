// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/beevik/go6502/asm"

	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/protocol"
	"github.com/ezrec/bitboard/serial"
	"github.com/ezrec/bitboard/translate"
)

const usage = `usage: %v [flags] command [text]

Commands:
  ping     Check the board is alive
  write    Write the -f file to memory at -a
  asm      Assemble the -f 6502 source and write it to memory at -a
  start    Run the board CPU
  stop     Stop the board CPU
  step     Step the board CPU once, and again on every Enter
  count    Print the instruction count
  log      Send the remaining arguments as operator text
  watch    Print board output until interrupted

Flags:
`

func main() {
	var port string
	var baud int
	var file string
	var address uint
	var checksum bool
	var watch bool
	var verbose bool

	flag.StringVar(&port, "p", "", "Serial port of the board (required)")
	flag.IntVar(&baud, "b", serial.BAUD, "Serial baud rate")
	flag.StringVar(&file, "f", "", "File to write to board memory")
	flag.UintVar(&address, "a", memory.PROGRAM_BASE, "Write address")
	flag.BoolVar(&checksum, "checksum", false, "Frames carry a checksum")
	flag.BoolVar(&watch, "w", false, "Print board output after the command until interrupted")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	command := "ping"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if len(port) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if address > 0xffff {
		log.Fatalf("%v: address %#x out of range", os.Args[0], address)
	}

	tty, err := serial.Open(port, baud)
	if err != nil {
		log.Fatal(err)
	}
	defer tty.Close()
	tty.Verbose = verbose

	client := protocol.NewClient(tty, checksum)
	client.Verbose = verbose
	client.OnLog = func(text string) {
		stamp := time.Now().Format("15:04:05.000")
		fmt.Printf("[%v][Log]: %v", stamp, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Println()
		}
	}

	switch command {
	case "ping":
		err = client.Ping()
		if err == nil {
			fmt.Println(translate.From("Pong received"))
		}
	case "write":
		if len(file) == 0 {
			log.Fatalf("%v: write: no -f file", os.Args[0])
		}
		var data []byte
		data, err = os.ReadFile(file)
		if err != nil {
			break
		}
		fmt.Println(translate.From("Writing %d bytes of %v at %v", len(data), file, translate.Hex(uint16(address))))
		err = client.WriteMemory(uint16(address), data)
	case "asm":
		if len(file) == 0 {
			log.Fatalf("%v: asm: no -f file", os.Args[0])
		}
		var data []byte
		data, err = assemble(file, verbose)
		if err != nil {
			break
		}
		fmt.Println(translate.From("Writing %d bytes of %v at %v", len(data), file, translate.Hex(uint16(address))))
		err = client.WriteMemory(uint16(address), data)
	case "start":
		err = client.Start()
	case "stop":
		err = client.Stop()
	case "step":
		err = step(client)
	case "count":
		var count uint32
		count, err = client.InstructionCount()
		if err == nil {
			fmt.Println(count)
		}
	case "log":
		err = client.Log(strings.Join(flag.Args()[1:], " ") + "\n")
	case "watch":
		watch = true
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%v: %v", command, err)
	}

	if watch {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		for ctx.Err() == nil {
			err = client.Poll()
			if err != nil && !errors.Is(err, protocol.ErrTimeout) {
				log.Fatalf("watch: %v", err)
			}
		}
	}
}

// assemble a 6502 source file to its binary image.
func assemble(name string, verbose bool) (code []byte, err error) {
	file, err := os.Open(name)
	if err != nil {
		return
	}
	defer file.Close()

	var options asm.Option
	if verbose {
		options |= asm.Verbose
	}

	assembly, _, err := asm.Assemble(file, name, os.Stderr, options)
	if err != nil {
		if assembly != nil {
			for _, line := range assembly.Errors {
				log.Printf("%v", line)
			}
		}
		return
	}

	code = assembly.Code
	return
}

// step steps once, then again for each line read from stdin.
func step(client *protocol.Client) (err error) {
	input := bufio.NewScanner(os.Stdin)
	for {
		err = client.Step()
		if err != nil {
			return
		}

		fmt.Print(translate.From("Press Enter to step again..."))
		if !input.Scan() {
			fmt.Println()
			err = input.Err()
			return
		}
	}
}
