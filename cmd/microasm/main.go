// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	goio "io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/microasm/cpu"
	"github.com/ezrec/microasm/debugger"
	"github.com/ezrec/microasm/emulator"
	"github.com/ezrec/microasm/format"
	"github.com/ezrec/microasm/internal"
	"github.com/ezrec/microasm/io"
	"github.com/ezrec/microasm/translate"
)

// source is a loaded and assembled input file.
type source struct {
	name  string
	lines []string
	prog  *cpu.Program
}

// load reads and assembles a file; "-" is stdin.
func load(asm *cpu.Assembler, name string) (src *source, err error) {
	var data []byte
	if name == "-" {
		data, err = goio.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return
	}

	text := string(data)
	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		return
	}

	src = &source{
		name:  name,
		lines: strings.Split(strings.TrimSuffix(text, "\n"), "\n"),
		prog:  prog,
	}
	return
}

// reformat renders a logged decimal OUT value in the requested radix.
func reformat(line string, radix format.Radix) string {
	value, err := strconv.Atoi(line)
	if err != nil {
		return line
	}
	return format.Value(int16(value), radix)
}

func main() {
	var maxSteps int
	var radixName string
	var lang string
	var dump bool
	var debug bool
	var verbose bool
	var parallel int

	asm := &cpu.Assembler{}

	flag.IntVar(&maxSteps, "max-steps", 100000, "Step budget per program, 0 for unlimited")
	flag.StringVar(&radixName, "radix", "dec", "Output radix (dec, hex, bin)")
	flag.StringVar(&lang, "lang", "", "Message language (BCP 47 tag)")
	flag.Func("D", "Predefine NAME=VALUE for $(...) expressions", func(def string) error {
		name, value, ok := strings.Cut(def, "=")
		if !ok || len(name) == 0 {
			return fmt.Errorf("expected NAME=VALUE, got %q", def)
		}
		asm.Predefine(name, value)
		return nil
	})
	flag.BoolVar(&dump, "dump", false, "Dump the assembled program and final state to stderr")
	flag.BoolVar(&debug, "debug", false, "Run the interactive debugger")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&parallel, "j", 0, "Programs to run in parallel, 0 for unlimited")

	flag.Parse()

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	radix, err := format.ParseRadix(radixName)
	if err != nil {
		log.Fatalf("%v: -radix %v: %v", os.Args[0], radixName, err)
	}

	asm.Verbose = verbose

	names := flag.Args()
	if len(names) == 0 {
		names = []string{"-"}
	}

	var srcs []*source
	for _, name := range names {
		src, err := load(asm, name)
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
		if dump {
			pp.Fprintln(os.Stderr, src.prog)
		}
		srcs = append(srcs, src)
	}

	if debug && len(srcs) != 1 {
		log.Fatalf("%v: -debug takes exactly one program", os.Args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	var rc int
	switch {
	case debug:
		rc = runDebugger(ctx, srcs[0], maxSteps, radix, verbose)
	case len(srcs) == 1:
		rc = runSingle(ctx, srcs[0], maxSteps, radix, verbose, dump)
	default:
		rc = runBatch(ctx, srcs, maxSteps, parallel, radix, dump)
	}

	stop()
	os.Exit(rc)
}

// runSingle streams the output of one program to stdout.
func runSingle(ctx context.Context, src *source, maxSteps int, radix format.Radix, verbose bool, dump bool) (rc int) {
	emu := emulator.NewEmulator(src.prog, maxSteps)
	emu.Verbose = verbose
	emu.Echo = &io.Tape{Output: os.Stdout, Format: radix.Func()}
	emu.Reset()

	if dump {
		for name, value := range internal.Sorted2(emu.Defines()) {
			fmt.Fprintf(os.Stderr, "%v=%v\n", name, value)
		}
	}

	_, err := emu.Run(ctx)
	if dump {
		pp.Fprintln(os.Stderr, emu.Snapshot())
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("%v: interrupted after %v steps", src.name, emu.Steps())
			return 130
		}
		for line := range emu.Errors.All() {
			fmt.Fprintf(os.Stderr, "%v: %v\n", src.name, line)
		}
		return 1
	}

	return 0
}

// runBatch runs several programs concurrently, then prints each one's output in order.
func runBatch(ctx context.Context, srcs []*source, maxSteps int, parallel int, radix format.Radix, dump bool) (rc int) {
	progs := make([]*cpu.Program, len(srcs))
	for n, src := range srcs {
		progs[n] = src.prog
	}

	snaps, err := emulator.RunBatch(ctx, progs, maxSteps, parallel)
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
		return 130
	}

	for n, snap := range snaps {
		fmt.Printf("==> %v <==\n", srcs[n].name)
		for _, line := range snap.Output {
			fmt.Println(reformat(line, radix))
		}
		for _, line := range snap.Errors {
			fmt.Fprintf(os.Stderr, "%v: %v\n", srcs[n].name, line)
		}
		if dump {
			pp.Fprintln(os.Stderr, snap)
		}
		if snap.Faulted() {
			rc = 1
		}
	}

	return
}

// runDebugger runs the terminal debugger on one program.
func runDebugger(ctx context.Context, src *source, maxSteps int, radix format.Radix, verbose bool) (rc int) {
	screen, err := tcell.NewScreen()
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
		return 1
	}
	err = screen.Init()
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
		return 1
	}

	emu := emulator.NewEmulator(src.prog, maxSteps)
	emu.Verbose = verbose

	dbg := debugger.New(screen, emu, src.lines)
	dbg.Radix = radix
	dbg.Verbose = verbose

	err = dbg.Loop(ctx)
	screen.Fini()

	for _, line := range emu.Output.Lines() {
		fmt.Println(reformat(line, radix))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("%v: %v", src.name, err)
		return 1
	}
	if emu.State() == emulator.STATE_FAULTED {
		return 1
	}

	return 0
}
