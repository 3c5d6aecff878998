package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/ezrec/bitboard/memory"
	"github.com/ezrec/bitboard/translate"
)

const (
	REFRESH       = 250 * time.Millisecond // Default console refresh.
	COMPACT_WIDTH = 40                     // Narrower terminals get one line.
)

// Console renders the latest snapshot to a writer at a fixed rate. On a
// terminal the panel is redrawn in place; otherwise one line is written per
// refresh.
type Console struct {
	Interval time.Duration // Refresh period.

	out      io.Writer
	fd       int
	terminal bool

	mutex  sync.Mutex
	latest Snapshot
	dirty  bool
	lines  int
}

var _ Sink = (*Console)(nil)

// NewConsole creates a console rendering to out.
func NewConsole(out io.Writer) (con *Console) {
	con = &Console{
		Interval: REFRESH,
		out:      out,
	}

	if file, ok := out.(*os.File); ok {
		con.fd = int(file.Fd())
		con.terminal = term.IsTerminal(con.fd)
	}

	return
}

// Update records snap for the next refresh.
func (con *Console) Update(snap Snapshot) {
	con.mutex.Lock()
	defer con.mutex.Unlock()

	con.latest = snap
	con.dirty = true
}

func access(acc memory.Access) string {
	if acc.Mode == memory.DIR_NONE {
		return "-"
	}
	return fmt.Sprintf("%c %v $%02X", acc.Mode.String()[0], translate.Hex(acc.Address), acc.Data)
}

func bit(set bool) string {
	if set {
		return "1"
	}
	return "0"
}

// Line renders snap on one line.
func Line(snap Snapshot) string {
	var sb strings.Builder

	for _, v := range snap.Values {
		fmt.Fprintf(&sb, "%v:%0*X ", v.Name, v.Width, v.Value)
	}
	for _, flag := range snap.Flags {
		if flag.Set {
			sb.WriteString(flag.Name)
		} else {
			sb.WriteString(strings.ToLower(flag.Name))
		}
	}
	fmt.Fprintf(&sb, " %v #%d %v", access(snap.Access), snap.Count, snap.State)

	return sb.String()
}

// Panel renders snap in the board display layout.
func Panel(snap Snapshot) []string {
	value := func(name string) string {
		for _, v := range snap.Values {
			if v.Name == name {
				return fmt.Sprintf("%v:%0*X", v.Name, v.Width, v.Value)
			}
		}
		return ""
	}

	var names, bits []string
	for _, flag := range snap.Flags {
		names = append(names, flag.Name)
		bits = append(bits, bit(flag.Set))
	}

	return []string{
		fmt.Sprintf("%-9s%v", "IRQ NMI", value("A")),
		fmt.Sprintf("%-9s%v", value("SP"), value("X")),
		fmt.Sprintf("%-9s%v", value("PC"), value("Y")),
		"MEMORY ACCESS",
		access(snap.Access),
		"STATUS REGISTERS",
		strings.Join(names, " "),
		strings.Join(bits, " "),
		translate.From("STEPS %d %v", snap.Count, snap.State),
	}
}

// Refresh writes the latest snapshot if it changed since the last refresh.
func (con *Console) Refresh() (err error) {
	con.mutex.Lock()
	snap, dirty := con.latest, con.dirty
	con.dirty = false
	con.mutex.Unlock()

	if !dirty {
		return
	}

	compact := !con.terminal
	if con.terminal {
		if width, _, serr := term.GetSize(con.fd); serr == nil && width < COMPACT_WIDTH {
			compact = true
		}
	}

	if compact {
		_, err = fmt.Fprintln(con.out, Line(snap))
		return
	}

	var sb strings.Builder
	if con.lines > 0 {
		fmt.Fprintf(&sb, "\x1b[%dA", con.lines)
	}
	lines := Panel(snap)
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\x1b[K\n")
	}
	con.lines = len(lines)

	_, err = io.WriteString(con.out, sb.String())
	return
}

// Run refreshes the console every Interval until ctx is done.
func (con *Console) Run(ctx context.Context) (err error) {
	interval := con.Interval
	if interval <= 0 {
		interval = REFRESH
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-ticker.C:
			err = con.Refresh()
			if err != nil {
				return
			}
		}
	}
}
