// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	EXPRESSION_STEPS = 100000 // Starlark execution steps allowed per $(...) expression.
)

// Predefined system equates, visible inside $(...) expressions.
var sysEquate = map[string]string{
	"LINENO":      "0",
	"REGISTERS":   strconv.Itoa(REGISTER_COUNT),
	"MEMORY_SIZE": strconv.Itoa(MEMORY_SIZE),
	"STACK_BASE":  strconv.Itoa(MEMORY_SIZE),
	"WORD_MIN":    strconv.Itoa(WORD_MIN),
	"WORD_MAX":    strconv.Itoa(WORD_MAX),
}

// Assembler is a single pass assembler for MicroASM.
type Assembler struct {
	Verbose     bool          // If set, verbosely logs the assembler actions.
	Instruction []Instruction // List of parsed instructions.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of uppercase labels to instruction indexes.
	Equate    map[string]string // Map of expression constants.
}

// Predefine defines a new expression constant or redefines an existing one.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Defines returns the system expression constants.
func Defines() map[string]string {
	return maps.Clone(sysEquate)
}

var (
	reTokenSep   = regexp.MustCompile(`[\s,]+`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	thread.SetMaxExecutionSteps(EXPRESSION_STEPS)
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, _err := strconv.ParseInt(str, 0, 64)
		if _err != nil {
			// Only integer constants are visible.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// expand replaces each $(...) in the line by its decimal value.
func (asm *Assembler) expand(line string, lineno int) (out string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	out = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			if err == nil {
				err = _err
			}
			return str
		}
		return strconv.Itoa(value)
	})

	return
}

// parseLine parses a single comment-free source line.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	if len(line) == 0 {
		return
	}

	raw := line
	line, err = asm.expand(line, lineno)
	if err != nil {
		return
	}

	var label string
	if before, after, ok := strings.Cut(line, ":"); ok {
		label = strings.ToUpper(strings.TrimSpace(before))
		if asm.Verbose {
			if old, ok := asm.Label[label]; ok {
				log.Printf("%v: label %v redefined (was %v)", lineno, label, old)
			}
		}
		asm.Label[label] = len(asm.Instruction)
		line = strings.TrimSpace(after)
		if len(line) == 0 {
			return
		}
	}

	words := slices.DeleteFunc(reTokenSep.Split(line, -1), func(a string) bool { return len(a) == 0 })
	if len(words) == 0 {
		return
	}

	opcode, ok := LookupOpcode(words[0])
	if !ok {
		err = ErrInstructionInvalid(strings.ToUpper(words[0]))
		return
	}

	inst := Instruction{
		LineNo:   lineno,
		Label:    label,
		Opcode:   opcode,
		Operands: words[1:],
		Line:     raw,
	}

	for _, word := range inst.Operands {
		var arg Operand
		arg, err = ValidateOperand(word)
		if err != nil {
			return
		}
		inst.Args = append(inst.Args, arg)
	}

	asm.Instruction = append(asm.Instruction, inst)

	return
}

// link checks that every branch target names a defined label.
func (asm *Assembler) link() (err error) {
	for n := range asm.Instruction {
		inst := &asm.Instruction[n]

		if !inst.Opcode.IsBranch() {
			continue
		}

		if len(inst.Operands) == 0 {
			err = &ErrSyntax{LineNo: inst.LineNo, Line: inst.Line, Err: ErrTargetMissing}
			return
		}
		label := strings.ToUpper(inst.Operands[0])
		_, ok := asm.Label[label]
		if !ok {
			err = &ErrSyntax{LineNo: inst.LineNo, Line: inst.Line, Err: ErrLabelMissing(label)}
			return
		}
	}

	return
}

// Parse parses an input stream into a Program.
// Any error discards the whole program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	asm.Label = make(map[string]int)
	asm.Instruction = asm.Instruction[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		code, _, _ := strings.Cut(text, ";")
		line = strings.TrimSpace(code)

		err = asm.parseLine(line, lineno)
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		err = &ErrSyntax{LineNo: lineno + 1, Err: err}
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Instructions: slices.Clone(asm.Instruction),
		Labels:       maps.Clone(asm.Label),
	}

	if asm.Verbose {
		log.Printf("assembled %v instructions, %v labels", prog.Len(), len(prog.Labels))
	}

	return
}

// ParseProgram parses MicroASM source text.
func ParseProgram(source string) (prog *Program, err error) {
	asm := &Assembler{}
	return asm.Parse(strings.NewReader(source))
}

// MustParseProgram is like ParseProgram, but panics on error.
func MustParseProgram(source string) *Program {
	prog, err := ParseProgram(source)
	if err != nil {
		panic(fmt.Sprintf("microasm: %v", err))
	}
	return prog
}
