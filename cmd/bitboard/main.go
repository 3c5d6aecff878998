// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezrec/bitboard/config"
	"github.com/ezrec/bitboard/controller"
	"github.com/ezrec/bitboard/emulator"
	"github.com/ezrec/bitboard/internal"
	"github.com/ezrec/bitboard/serial"
	"github.com/ezrec/bitboard/server"
	"github.com/ezrec/bitboard/telemetry"
)

var _ server.Port = (*serial.Port)(nil)

func main() {
	var board string
	var port string
	var baud int
	var program string
	var stopped bool
	var display int
	var stats string
	var defines bool
	var graph string
	var verbose bool

	flag.StringVar(&board, "c", "", "Board configuration (.star) file")
	flag.StringVar(&port, "p", "", "Serial port to serve the protocol on")
	flag.IntVar(&baud, "b", 0, "Serial baud rate")
	flag.StringVar(&program, "f", "", "Program image to load at the program base")
	flag.BoolVar(&stopped, "s", false, "Power on stopped")
	flag.IntVar(&display, "t", -1, "Telemetry refresh in ms, 0 to disable")
	flag.StringVar(&stats, "statsview", "", "Serve runtime stats on this address")
	flag.BoolVar(&defines, "defines", false, "Print the board defines and exit")
	flag.StringVar(&graph, "memviz", "", "Write a Graphviz graph of the resolved configuration to this file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if defines {
		for key, value := range internal.IterSeq2Sorted(emulator.Defines()) {
			fmt.Printf("%v = %v\n", key, value)
		}
		return
	}

	cfg := config.Default()
	if len(board) != 0 {
		var err error
		cfg, err = config.Load(board, nil, emulator.Defines())
		if err != nil {
			log.Fatalf("%v: %v", board, err)
		}
	}

	if len(port) != 0 {
		cfg.Port = port
	}
	if baud != 0 {
		cfg.Baud = baud
	}
	if len(program) != 0 {
		cfg.Program = program
	}
	if stopped {
		cfg.Start = controller.STATE_STOPPED
	}
	if display >= 0 {
		cfg.Telemetry = time.Duration(display) * time.Millisecond
	}
	cfg.Verbose = cfg.Verbose || verbose

	if len(graph) != 0 {
		err := writeGraph(graph, &cfg)
		if err != nil {
			log.Fatalf("%v: %v", graph, err)
		}
	}

	if len(stats) != 0 {
		launchStatsview(stats)
	}

	emu, err := emulator.NewEmulator(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer emu.Close()

	if cfg.Telemetry > 0 {
		console := telemetry.NewConsole(os.Stdout)
		console.Interval = cfg.Telemetry
		emu.Sink = console
	}

	var line server.Port
	if len(cfg.Port) != 0 {
		tty, err := serial.Open(cfg.Port, cfg.Baud)
		if err != nil {
			log.Fatal(err)
		}
		defer tty.Close()
		tty.Verbose = cfg.Verbose
		line = tty
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	go func() {
		for range hangup {
			log.Printf("bitboard: reset")
			emu.Reset()
		}
	}()

	err = emu.Run(ctx, line)
	if err != nil {
		log.Fatal(err)
	}
}
