package cpu

// The stack lives in memory, below STACK_TOP, and grows down. R7 points at
// the most recently pushed value.
//
// Without StackCheck the stack pointer simply wraps, and a deep stack will
// overwrite the program. With StackCheck, a push that would wrap or land on
// the loaded program fails with ErrStackOverflow, and a pop from an empty
// stack fails with ErrStackUnderflow. A failed push or pop changes nothing.

// checkPush verifies there is room for another value.
func (cpu *Cpu) checkPush() (err error) {
	if !cpu.StackCheck {
		return
	}

	sp := cpu.Register[REG_SP]
	if sp == 0 || int(sp-1) < cpu.ProgramSize {
		err = ErrStackOverflow
	}
	return
}

// checkPop verifies the stack holds a value.
func (cpu *Cpu) checkPop() (err error) {
	if cpu.StackCheck && cpu.Register[REG_SP] >= STACK_TOP {
		err = ErrStackUnderflow
	}
	return
}

// Push decrements the stack pointer, then stores the value.
func (cpu *Cpu) Push(value uint8) (err error) {
	err = cpu.checkPush()
	if err != nil {
		return
	}

	cpu.Register[REG_SP]--
	cpu.Memory[cpu.Register[REG_SP]] = value
	return
}

// PushRegister pushes a register. The stack pointer is decremented before
// the register is read, so pushing R7 stores the new stack pointer.
func (cpu *Cpu) PushRegister(n uint8) (err error) {
	err = cpu.checkPush()
	if err != nil {
		return
	}

	cpu.Register[REG_SP]--
	cpu.Memory[cpu.Register[REG_SP]] = *cpu.reg(n)
	return
}

// Pop loads the value at the stack pointer, then increments it.
func (cpu *Cpu) Pop() (value uint8, err error) {
	err = cpu.checkPop()
	if err != nil {
		return
	}

	value = cpu.Memory[cpu.Register[REG_SP]]
	cpu.Register[REG_SP]++
	return
}

// PopRegister pops into a register. The stack pointer is incremented after
// the register is written, so popping into R7 leaves it one past the value.
func (cpu *Cpu) PopRegister(n uint8) (err error) {
	err = cpu.checkPop()
	if err != nil {
		return
	}

	*cpu.reg(n) = cpu.Memory[cpu.Register[REG_SP]]
	cpu.Register[REG_SP]++
	return
}

// Peek returns the value on the top of the stack.
func (cpu *Cpu) Peek() (value uint8, ok bool) {
	if cpu.Depth() == 0 {
		return
	}

	return cpu.Memory[cpu.Register[REG_SP]], true
}

// Depth returns the number of values on the stack.
func (cpu *Cpu) Depth() int {
	sp := cpu.Register[REG_SP]
	if sp >= STACK_TOP {
		return 0
	}
	return STACK_TOP - int(sp)
}
