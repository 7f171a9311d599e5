// Package vm implements the cycle-accurate EMU32 execution core: the
// consumer side of the encoding package's instruction contract (§6.2).
// It is deliberately small — the specification treats the ALU and
// control unit as validation plumbing for the assembler's output, not
// as a separately designed subsystem, so this package implements only
// what is needed to execute an assembled .text section and observe the
// NZCV flags a flag-setting Format O instruction produces. Grounded on
// the teacher's vm/cpu.go register-file shape and vm/flags.go flag
// arithmetic, generalized from ARM2's R0-R14+CPSR model to EMU32's
// 32-register file and the encoding package's Format O/M/B1/B2/M1
// instruction set.
package vm

// Register indices. EMU32 has 32 general registers; x30 is reachable
// only through the lr alias and x31 only through sp/xzr (token package
// never tokenizes "x30"/"x31" directly, per §9's register-alias note).
const (
	LR         = 30
	SP         = 31
	RegisterCount = 32
)

// CPU holds one EMU32 core's architectural state: the register file,
// program counter, NZCV flags and a cycle counter.
type CPU struct {
	X      [RegisterCount]uint32
	PC     uint32
	Flags  Flags
	Cycles uint64
}

// NewCPU returns a CPU with all registers, PC and flags zeroed.
func NewCPU() *CPU {
	return &CPU{}
}

// Reset zeroes all architectural state.
func (c *CPU) Reset() {
	c.X = [RegisterCount]uint32{}
	c.PC = 0
	c.Flags = Flags{}
	c.Cycles = 0
}

// GetRegister returns register reg's value. Register 31 is always
// treated as the stack pointer by this emulator — the assembler-level
// sp/xzr ambiguity over encoded field 31 (§9's register-alias note) is
// a naming concern at assembly time, not a runtime one, since the
// encoding contract carries only the field value.
func (c *CPU) GetRegister(reg uint32) uint32 {
	if reg >= RegisterCount {
		return 0
	}
	return c.X[reg]
}

// SetRegister writes value to register reg.
func (c *CPU) SetRegister(reg uint32, value uint32) {
	if reg < RegisterCount {
		c.X[reg] = value
	}
}

// GetSP / SetSP access register 31 as the stack pointer.
func (c *CPU) GetSP() uint32        { return c.X[SP] }
func (c *CPU) SetSP(value uint32)   { c.X[SP] = value }

// GetLR / SetLR access register 30 as the link register.
func (c *CPU) GetLR() uint32      { return c.X[LR] }
func (c *CPU) SetLR(value uint32) { c.X[LR] = value }

// IncrementPC advances the PC by one instruction word.
func (c *CPU) IncrementPC() { c.PC += 4 }

// Branch sets the PC directly, e.g. for an unconditional jump.
func (c *CPU) Branch(address uint32) { c.PC = address }

// BranchWithLink saves the return address (the word after this branch)
// in LR and jumps to address.
func (c *CPU) BranchWithLink(address uint32) {
	c.SetLR(c.PC + 4)
	c.PC = address
}
