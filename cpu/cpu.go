package cpu

import (
	"fmt"
	"log"
	"slices"

	"github.com/ezrec/microasm/io"
)

// Channel is the OUT channel interface.
type Channel io.Channel

// Cpu is the MicroASM virtual machine state.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [REGISTER_COUNT]int16 // Register bank r0-r3.
	Pc       int                   // Index of the next instruction.
	Sp       int                   // Stack pointer into Memory.
	Zf       bool                  // Zero flag.
	Sf       bool                  // Sign flag.
	Memory   Memory                // Data and stack memory.

	Ticks int // Instructions executed since reset.

	output Channel
}

// NewCpu creates a new CPU in its reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Reset the CPU state.
// - Clears registers, flags and memory.
// - Empties the stack.
// - Points PC at the first instruction.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	cpu.Pc = 0
	cpu.Sp = STACK_BASE
	cpu.Zf = false
	cpu.Sf = false
	cpu.Ticks = 0
}

// SetChannel sets the channel that receives OUT values.
func (cpu *Cpu) SetChannel(channel Channel) {
	cpu.output = channel
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "sp",
		"r0", "r1", "r2", "r3",
		"zf", "sf",
		"stack",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%d", cpu.Pc)
		case "sp":
			strval = fmt.Sprintf("%d", cpu.Sp)
		case "r0", "r1", "r2", "r3":
			val := cpu.Register[byte(reg[1]-'0')]
			strval = fmt.Sprintf("%6d 0x%04X", val, uint16(val))
		case "zf":
			strval = fmt.Sprintf("%v", cpu.Zf)
		case "sf":
			strval = fmt.Sprintf("%v", cpu.Sf)
		case "stack":
			val, err := cpu.Peek()
			if err == nil {
				strval = fmt.Sprintf("%6d 0x%04X", val, uint16(val))
			} else {
				strval = "------"
			}
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Step fetches and executes the instruction at PC.
// Running off the end of the program is a successful halt.
func (cpu *Cpu) Step(prog *Program) (halt bool, err error) {
	inst, ok := prog.Fetch(cpu.Pc)
	if !ok {
		if cpu.Pc == prog.Len() {
			halt = true
			return
		}
		err = ErrPcRange
		return
	}

	halt, err = cpu.Execute(prog, inst)
	return
}

// Execute executes a single instruction.
// On error the CPU state is left as it was before the instruction.
func (cpu *Cpu) Execute(prog *Program, inst *Instruction) (halt bool, err error) {
	if cpu.Verbose {
		log.Printf("%03d: %v", cpu.Pc, inst)
	}

	min, max := inst.Opcode.Arity()
	if len(inst.Operands) < min {
		err = ErrOperandMissing
		return
	}
	if len(inst.Operands) > max {
		err = ErrOperandExtra
		return
	}

	args := make([]Operand, len(inst.Operands))
	for n := range args {
		args[n], err = inst.Arg(n)
		if err != nil {
			return
		}
	}

	// Operand kind check.
	kind := func(n int, kinds ...OperandKind) error {
		if !slices.Contains(kinds, args[n].Kind) {
			return &ErrOperand{Token: inst.Operands[n], Err: ErrOperandKind}
		}
		return nil
	}

	next_pc := cpu.Pc + 1

	switch inst.Opcode {
	case OP_MOV:
		err = kind(0, OPERAND_REGISTER, OPERAND_DIRECT, OPERAND_INDIRECT)
		if err != nil {
			return
		}
		err = kind(1, OPERAND_REGISTER, OPERAND_IMMEDIATE, OPERAND_DIRECT, OPERAND_INDIRECT)
		if err != nil {
			return
		}
		var value int16
		value, err = cpu.read(args[1])
		if err != nil {
			return
		}
		err = cpu.write(args[0], value)
	case OP_PUSH:
		err = kind(0, OPERAND_REGISTER, OPERAND_IMMEDIATE)
		if err != nil {
			return
		}
		var value int16
		value, err = cpu.read(args[0])
		if err != nil {
			return
		}
		err = cpu.Push(value)
	case OP_POP:
		err = kind(0, OPERAND_REGISTER)
		if err != nil {
			return
		}
		var value int16
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		cpu.Register[args[0].Value] = value
	case OP_ADD, OP_SUB, OP_MOL, OP_DIV, OP_AND, OP_OR:
		err = kind(0, OPERAND_REGISTER)
		if err != nil {
			return
		}
		err = kind(1, OPERAND_REGISTER, OPERAND_IMMEDIATE)
		if err != nil {
			return
		}
		var value int16
		value, err = cpu.read(args[1])
		if err != nil {
			return
		}
		var output int16
		output, err = doAlu(inst.Opcode, cpu.Register[args[0].Value], value)
		if err != nil {
			return
		}
		cpu.setResult(args[0].Value, output)
	case OP_INC, OP_DEC:
		err = kind(0, OPERAND_REGISTER)
		if err != nil {
			return
		}
		var output int16
		output, err = doAlu(inst.Opcode, cpu.Register[args[0].Value], 1)
		if err != nil {
			return
		}
		cpu.setResult(args[0].Value, output)
	case OP_NOT:
		err = kind(0, OPERAND_REGISTER)
		if err != nil {
			return
		}
		value := cpu.Register[args[0].Value]
		if len(args) > 1 {
			err = kind(1, OPERAND_REGISTER, OPERAND_IMMEDIATE)
			if err != nil {
				return
			}
			value, err = cpu.read(args[1])
			if err != nil {
				return
			}
		}
		cpu.setResult(args[0].Value, ^value)
	case OP_CMP:
		err = kind(0, OPERAND_REGISTER, OPERAND_IMMEDIATE)
		if err != nil {
			return
		}
		err = kind(1, OPERAND_REGISTER, OPERAND_IMMEDIATE)
		if err != nil {
			return
		}
		var a, b int16
		a, err = cpu.read(args[0])
		if err != nil {
			return
		}
		b, err = cpu.read(args[1])
		if err != nil {
			return
		}
		diff := int(a) - int(b)
		cpu.Zf = diff == 0
		cpu.Sf = diff < 0
	case OP_JMP, OP_JZ, OP_JNZ, OP_JS, OP_JNS, OP_CALL:
		err = kind(0, OPERAND_LABEL)
		if err != nil {
			return
		}
		target, ok := prog.Labels[args[0].Label]
		if !ok {
			err = ErrLabelMissing(args[0].Label)
			return
		}
		var taken bool
		switch inst.Opcode {
		case OP_JMP:
			taken = true
		case OP_JZ:
			taken = cpu.Zf
		case OP_JNZ:
			taken = !cpu.Zf
		case OP_JS:
			taken = cpu.Sf
		case OP_JNS:
			taken = !cpu.Sf
		case OP_CALL:
			err = cpu.Push(Wrap(next_pc))
			if err != nil {
				return
			}
			taken = true
		}
		if taken {
			next_pc = target
		}
	case OP_RET:
		var value int16
		value, err = cpu.Peek()
		if err != nil {
			return
		}
		if value < 0 || int(value) > prog.Len() {
			err = ErrReturnAddress
			return
		}
		cpu.Sp++
		next_pc = int(value)
	case OP_OUT:
		err = kind(0, OPERAND_REGISTER, OPERAND_IMMEDIATE, OPERAND_DIRECT, OPERAND_INDIRECT)
		if err != nil {
			return
		}
		if cpu.output == nil {
			err = ErrChannelInvalid
			return
		}
		var value int16
		value, err = cpu.read(args[0])
		if err != nil {
			return
		}
		err = cpu.output.Send(value)
		if err != nil {
			return
		}
	case OP_HLT:
		halt = true
		next_pc = cpu.Pc
	default:
		err = ErrInstructionInvalid(inst.Opcode.String())
		return
	}

	if err != nil {
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks += 1

	return
}

// address resolves a memory operand to a cell index.
func (cpu *Cpu) address(arg Operand) (addr int, err error) {
	switch arg.Kind {
	case OPERAND_DIRECT:
		addr = arg.Value
	case OPERAND_INDIRECT:
		addr = int(cpu.Register[arg.Value])
	default:
		err = ErrOperandKind
		return
	}

	if addr < 0 || addr >= MEMORY_SIZE {
		err = ErrMemoryRange
		return
	}

	return
}

// read gets the value of a register, immediate, or memory operand.
func (cpu *Cpu) read(arg Operand) (value int16, err error) {
	switch arg.Kind {
	case OPERAND_REGISTER:
		value = cpu.Register[arg.Value]
	case OPERAND_IMMEDIATE:
		if arg.Value < WORD_MIN || arg.Value > WORD_MAX {
			err = ErrImmediateRange
			return
		}
		value = int16(arg.Value)
	case OPERAND_DIRECT, OPERAND_INDIRECT:
		var addr int
		addr, err = cpu.address(arg)
		if err != nil {
			return
		}
		value = cpu.Memory[addr]
	default:
		err = ErrOperandKind
	}

	return
}

// write stores a value into a register or memory operand.
func (cpu *Cpu) write(arg Operand, value int16) (err error) {
	switch arg.Kind {
	case OPERAND_REGISTER:
		cpu.Register[arg.Value] = value
	case OPERAND_DIRECT, OPERAND_INDIRECT:
		var addr int
		addr, err = cpu.address(arg)
		if err != nil {
			return
		}
		cpu.Memory[addr] = value
	default:
		err = ErrOperandKind
	}

	return
}

// setResult stores an ALU result and updates the zero and sign flags.
func (cpu *Cpu) setResult(reg int, value int16) {
	cpu.Register[reg] = value
	cpu.Zf = value == 0
	cpu.Sf = value < 0
}

// doAlu performs the requested ALU action, and returns the wrapped output value.
func doAlu(op Opcode, input int16, value int16) (output int16, err error) {
	a := int(input)
	b := int(value)

	switch op {
	case OP_ADD, OP_INC:
		output = Wrap(a + b)
	case OP_SUB, OP_DEC:
		output = Wrap(a - b)
	case OP_MOL:
		output = Wrap(a * b)
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		output = Wrap(a / b)
	case OP_AND:
		output = input & value
	case OP_OR:
		output = input | value
	default:
		err = ErrInstructionInvalid(op.String())
	}

	return
}
