package cpu

const (
	STACK_BASE = MEMORY_SIZE // Stack pointer of an empty stack.
)

// Memory is the byte-addressable data array, doubling as the stack.
type Memory [MEMORY_SIZE]int16

// Push stores a value below the stack pointer.
func (cpu *Cpu) Push(value int16) (err error) {
	if cpu.StackFull() {
		err = ErrStackFull
		return
	}

	cpu.Sp--
	cpu.Memory[cpu.Sp] = value
	return
}

// Pop removes the value at the stack pointer.
func (cpu *Cpu) Pop() (value int16, err error) {
	value, err = cpu.Peek()
	if err == nil {
		cpu.Sp++
	}
	return
}

// Peek returns the value at the stack pointer without removing it.
func (cpu *Cpu) Peek() (value int16, err error) {
	if cpu.StackEmpty() {
		err = ErrStackEmpty
		return
	}

	value = cpu.Memory[cpu.Sp]
	return
}

// StackEmpty returns true if nothing has been pushed.
func (cpu *Cpu) StackEmpty() bool {
	return cpu.Sp >= STACK_BASE
}

// StackFull returns true if the stack has consumed all of memory.
func (cpu *Cpu) StackFull() bool {
	return cpu.Sp <= 0
}

// StackDepth returns the number of cells on the stack.
func (cpu *Cpu) StackDepth() int {
	return STACK_BASE - cpu.Sp
}
