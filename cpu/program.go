package cpu

import (
	"fmt"
	"slices"
	"strings"
)

// Program is a parsed instruction list with its resolved label table.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int // Uppercase label to instruction index.
}

// Len returns the number of instructions. A nil program is empty.
func (prog *Program) Len() int {
	if prog == nil {
		return 0
	}
	return len(prog.Instructions)
}

// Lookup resolves a label, ignoring case.
func (prog *Program) Lookup(label string) (index int, ok bool) {
	index, ok = prog.Labels[strings.ToUpper(label)]
	return
}

// Fetch returns the instruction at pc.
func (prog *Program) Fetch(pc int) (inst *Instruction, ok bool) {
	if pc < 0 || pc >= prog.Len() {
		return
	}

	return &prog.Instructions[pc], true
}

// LineNo returns the source line of the instruction at pc, or 0.
func (prog *Program) LineNo(pc int) int {
	inst, ok := prog.Fetch(pc)
	if !ok {
		return 0
	}
	return inst.LineNo
}

// Index returns the index of the first instruction on a source line.
func (prog *Program) Index(lineno int) (pc int, ok bool) {
	pc = slices.IndexFunc(prog.Instructions, func(inst Instruction) bool {
		return inst.LineNo == lineno
	})
	ok = pc >= 0
	return
}

// String returns an assembly listing of the program.
func (prog *Program) String() (text string) {
	var labels = map[int][]string{}
	for label, index := range prog.Labels {
		labels[index] = append(labels[index], label)
	}

	for pc := range len(prog.Instructions) + 1 {
		names := labels[pc]
		slices.Sort(names)
		for _, name := range names {
			text += fmt.Sprintf("%v:\n", name)
		}
		inst, ok := prog.Fetch(pc)
		if ok {
			text += fmt.Sprintf("%04d %4d    %v\n", pc, inst.LineNo, inst.String())
		}
	}

	return
}
