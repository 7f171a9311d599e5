package vm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/encoding"
)

// executeMoveWide runs one Format M1 instruction. By the time a
// program reaches the emulator, any EMU32_ADRP_HI20/EMU32_MOV_LO19/
// EMU32_MOV_HI13 relocations named in §3 have already been applied by
// the (out-of-scope, §1) linker, so Imm here is always the final,
// already-resolved field value — this executor has no linking step of
// its own (§1's Non-goals: no linker).
func (e *Executor) executeMoveWide(inst encoding.Instruction) error {
	switch inst.Op {
	case encoding.OpMOVZ, encoding.OpMOVW, encoding.OpADRP:
		e.CPU.SetRegister(inst.Rd, inst.Imm)
	case encoding.OpMOVN:
		e.CPU.SetRegister(inst.Rd, ^inst.Imm&0x7FFFF)
	case encoding.OpMOVK:
		cur := e.CPU.GetRegister(inst.Rd)
		e.CPU.SetRegister(inst.Rd, (cur&0x7FFFF)|(inst.Imm<<19))
	default:
		return fmt.Errorf("opcode %v is not a Format M1 instruction", inst.Op)
	}
	return nil
}
