// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package debugger is an interactive terminal front end for the emulator.
package debugger

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/ezrec/microasm/cpu"
	"github.com/ezrec/microasm/emulator"
	"github.com/ezrec/microasm/format"
	"github.com/ezrec/microasm/translate"
)

var f = translate.From

const (
	PANEL_WIDTH    = 28 // Width of the register panel.
	STACK_ROWS     = 8  // Stack cells shown below the registers.
	SCROLL_CONTEXT = 3  // Source lines kept visible around the cursor.

	pcMarker    = '>'
	breakMarker = '*'
	helpLine    = "s:step c:continue b:break r:reset f:radix q:quit"
)

var (
	styleText   = tcell.StyleDefault
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleCursor = tcell.StyleDefault.Reverse(true)
	stylePc     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleBreak  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleFault  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHelp   = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Debugger displays source, registers, stack and output of an emulator,
// and drives it from keyboard events.
type Debugger struct {
	Verbose  bool
	Screen   tcell.Screen
	Emulator *emulator.Emulator
	Source   []string     // Source text, one entry per line.
	Radix    format.Radix // Display radix of machine words.

	cursor int // Selected source line, 1-based.
	top    int // First visible source line, 1-based.
	status string
}

// New creates a debugger. The screen must already be initialized.
func New(screen tcell.Screen, emu *emulator.Emulator, source []string) (dbg *Debugger) {
	dbg = &Debugger{
		Screen:   screen,
		Emulator: emu,
		Source:   source,
		cursor:   1,
		top:      1,
	}

	dbg.follow()

	return
}

// Cursor returns the selected source line.
func (dbg *Debugger) Cursor() int {
	return dbg.cursor
}

// Status returns the last status message.
func (dbg *Debugger) Status() string {
	return dbg.status
}

// follow moves the cursor to the line at PC.
func (dbg *Debugger) follow() {
	lineno := dbg.Emulator.LineNo()
	if lineno > 0 {
		dbg.cursor = lineno
	}
}

// move shifts the cursor, keeping it on a source line.
func (dbg *Debugger) move(delta int) {
	dbg.cursor = min(max(dbg.cursor+delta, 1), max(len(dbg.Source), 1))
}

// report sets the status line from the result of a step or run.
func (dbg *Debugger) report(done bool, err error) {
	emu := dbg.Emulator
	switch {
	case err != nil:
		dbg.status = err.Error()
	case done:
		dbg.status = f("halted after %v steps", strconv.Itoa(emu.Steps()))
	case emu.Breakpoint(emu.LineNo()):
		dbg.status = f("breakpoint at line %v", strconv.Itoa(emu.LineNo()))
	default:
		dbg.status = f("line %v", strconv.Itoa(emu.LineNo()))
	}

	if dbg.Verbose {
		log.Printf("debugger: %v", dbg.status)
	}
}

// Handle processes a single event. quit is set when the user asks to leave.
func (dbg *Debugger) Handle(ctx context.Context, ev tcell.Event) (quit bool) {
	emu := dbg.Emulator

	switch ev := ev.(type) {
	case *tcell.EventResize:
		dbg.Screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			quit = true
			return
		case tcell.KeyUp:
			dbg.move(-1)
			return
		case tcell.KeyDown:
			dbg.move(1)
			return
		case tcell.KeyPgUp:
			dbg.move(-dbg.rows())
			return
		case tcell.KeyPgDn:
			dbg.move(dbg.rows())
			return
		case tcell.KeyRune:
		default:
			return
		}

		switch ev.Rune() {
		case 'q':
			quit = true
		case 's', ' ', 'n':
			done, err := emu.Tick()
			dbg.report(done, err)
			dbg.follow()
		case 'c':
			done, err := emu.Run(ctx)
			dbg.report(done, err)
			dbg.follow()
		case 'b':
			enable := !emu.Breakpoint(dbg.cursor)
			emu.SetBreakpoint(dbg.cursor, enable)
			if enable {
				dbg.status = f("breakpoint set at line %v", strconv.Itoa(dbg.cursor))
			} else {
				dbg.status = f("breakpoint cleared at line %v", strconv.Itoa(dbg.cursor))
			}
		case 'r':
			emu.Reset()
			dbg.cursor = 1
			dbg.follow()
			dbg.status = f("reset")
		case 'f':
			dbg.Radix = dbg.Radix.Next()
			dbg.status = f("radix %v", dbg.Radix)
		case 'k':
			dbg.move(-1)
		case 'j':
			dbg.move(1)
		}
	}

	return
}

// Loop draws and handles events until quit, or ctx is done.
func (dbg *Debugger) Loop(ctx context.Context) (err error) {
	for {
		dbg.Draw()

		ev := dbg.Screen.PollEvent()
		if ev == nil {
			// Screen finalized.
			return
		}

		if dbg.Handle(ctx, ev) {
			return
		}

		err = ctx.Err()
		if err != nil {
			return
		}
	}
}

// rows returns the height of the source pane.
func (dbg *Debugger) rows() int {
	_, height := dbg.Screen.Size()
	return max(height-2, 1)
}

// drawText draws a string, clipped to width. Returns the columns used.
func (dbg *Debugger) drawText(x, y, width int, style tcell.Style, text string) (used int) {
	for _, r := range text {
		if used >= width {
			break
		}
		dbg.Screen.SetContent(x+used, y, r, nil, style)
		used++
	}
	return
}

// Draw renders the whole debugger view from a snapshot of the emulator.
func (dbg *Debugger) Draw() {
	screen := dbg.Screen
	emu := dbg.Emulator
	snap := emu.Snapshot()

	screen.Clear()
	width, height := screen.Size()

	rows := dbg.rows()
	if dbg.cursor < dbg.top+SCROLL_CONTEXT {
		dbg.top = max(dbg.cursor-SCROLL_CONTEXT, 1)
	}
	if dbg.cursor >= dbg.top+rows-SCROLL_CONTEXT {
		dbg.top = max(dbg.cursor-rows+SCROLL_CONTEXT+1, 1)
	}

	// Source pane.
	srcWidth := max(width-PANEL_WIDTH-1, 0)
	pcLine := snap.LineNo
	for y := range rows {
		lineno := dbg.top + y
		if lineno > len(dbg.Source) {
			break
		}

		style := styleText
		if lineno == dbg.cursor {
			style = styleCursor
		}

		x := 0
		if emu.Breakpoint(lineno) {
			screen.SetContent(x, y, breakMarker, nil, styleBreak)
		}
		x++
		if lineno == pcLine {
			screen.SetContent(x, y, pcMarker, nil, stylePc)
		}
		x++
		dbg.drawText(x, y, srcWidth-x, style, fmt.Sprintf("%4d %v", lineno, dbg.Source[lineno-1]))
	}

	// Register panel.
	px := srcWidth + 1
	for y := range rows {
		screen.SetContent(srcWidth, y, tcell.RuneVLine, nil, styleHelp)
	}

	word := dbg.Radix.Func()
	y := 0
	line := func(style tcell.Style, text string) {
		if y < rows {
			dbg.drawText(px, y, PANEL_WIDTH, style, text)
		}
		y++
	}

	line(styleTitle, f("state %v", snap.State))
	line(styleText, fmt.Sprintf("pc %4d  sp %4d", snap.Pc, snap.Sp))
	for n, value := range snap.Register {
		line(styleText, fmt.Sprintf("r%d %v", n, word(value)))
	}
	line(styleText, fmt.Sprintf("zf %-5v sf %-5v", snap.Zf, snap.Sf))
	line(styleText, fmt.Sprintf("steps %d", snap.Steps))

	line(styleTitle, f("stack"))
	for n := range STACK_ROWS {
		sp := snap.Sp + n
		if sp >= cpu.STACK_BASE {
			break
		}
		line(styleText, fmt.Sprintf("[%3d] %v", sp, word(snap.Memory[sp])))
	}

	line(styleTitle, f("output"))
	outRows := max(rows-y, 0)
	lines := snap.Output
	if len(lines) > outRows {
		lines = lines[len(lines)-outRows:]
	}
	for _, text := range lines {
		line(styleText, text)
	}

	// Status and help.
	statusStyle := styleText
	if snap.Faulted() {
		statusStyle = styleFault
	}
	if height >= 2 {
		dbg.drawText(0, height-2, width, statusStyle, dbg.status)
	}
	if height >= 1 {
		dbg.drawText(0, height-1, width, styleHelp, f(helpLine))
	}

	screen.Show()
}
