package vm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/encoding"
)

// executeMisc runs one FormatMisc instruction. Each of these opcodes
// packs its single operand (if any) into inst.Imm at assembly time
// (asm.encodeMiscInst): BX/BLX a register number, SVC a syscall
// number, PUSH/POP a register-list bitmask; HLT/NOP carry nothing.
// branched reports whether the instruction already set CPU.PC itself
// (BX/BLX), so the caller must not also apply its normal increment.
func (e *Executor) executeMisc(inst encoding.Instruction) (branched bool, err error) {
	switch inst.Op {
	case encoding.OpHLT:
		e.Halted = true
		return false, nil
	case encoding.OpNOP:
		return false, nil
	case encoding.OpSVC:
		e.LastSyscall = inst.Imm
		return false, nil
	case encoding.OpBX:
		e.CPU.Branch(e.CPU.GetRegister(inst.Imm))
		return true, nil
	case encoding.OpBLX:
		e.CPU.BranchWithLink(e.CPU.GetRegister(inst.Imm))
		return true, nil
	case encoding.OpPUSH:
		return false, e.push(inst.Imm)
	case encoding.OpPOP:
		return false, e.pop(inst.Imm)
	default:
		return false, fmt.Errorf("opcode %v is not a FormatMisc instruction", inst.Op)
	}
}

// push stores each register named in mask (highest register first) to
// the stack, pre-decrementing SP by 4 per register — the same order
// PUSH {r0-r7} uses on real load/store-multiple architectures, so a
// matching POP restores registers to their original values.
func (e *Executor) push(mask uint32) error {
	for reg := 25; reg >= 0; reg-- {
		if mask&(1<<uint(reg)) == 0 {
			continue
		}
		sp := e.CPU.GetSP() - 4
		e.CPU.SetSP(sp)
		if err := e.Memory.WriteWord(sp, e.CPU.GetRegister(uint32(reg))); err != nil {
			return err
		}
	}
	return nil
}

// pop restores each register named in mask (lowest register first)
// from the stack, post-incrementing SP by 4 per register.
func (e *Executor) pop(mask uint32) error {
	for reg := 0; reg <= 25; reg++ {
		if mask&(1<<uint(reg)) == 0 {
			continue
		}
		sp := e.CPU.GetSP()
		v, err := e.Memory.ReadWord(sp)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(uint32(reg), v)
		e.CPU.SetSP(sp + 4)
	}
	return nil
}
