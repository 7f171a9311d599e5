package vm

import "github.com/lookbusy1344/emu32asm/encoding"

// executeBranch runs one Format B1 conditional branch: if Cond is
// satisfied by the current flags, jump pc-relative to instAddr+Imm;
// otherwise the caller's normal PC increment applies. instAddr is the
// address of the branch instruction itself (word offsets in §4.6 are
// counted from the branch, not from the following instruction).
func (e *Executor) executeBranch(inst encoding.Instruction, instAddr uint32) (taken bool) {
	if !e.CPU.Flags.EvaluateCondition(inst.Cond) {
		return false
	}
	e.CPU.Branch(instAddr + inst.Imm)
	return true
}

// executeBranchLink runs one Format B2 unconditional branch-link
// ('bl SYMBOL'): saves the return address in LR, then jumps
// pc-relative to instAddr+Imm.
func (e *Executor) executeBranchLink(inst encoding.Instruction, instAddr uint32) {
	e.CPU.BranchWithLink(instAddr + inst.Imm)
}
