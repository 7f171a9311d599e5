package vm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/encoding"
)

// Executor fetches, decodes and executes EMU32 words against a CPU and
// Memory. Ported in shape from the teacher's vm/executor.go
// fetch-decode-execute loop, generalized to dispatch through
// encoding.Decode (§6.2's shared contract) instead of a hand-rolled
// ARM bit-field switch.
type Executor struct {
	CPU    *CPU
	Memory *Memory

	Halted      bool
	LastSyscall uint32
}

// NewExecutor returns an Executor over a fresh CPU and the given
// memory image (typically loaded from an assembled .text/.data pair).
func NewExecutor(mem *Memory) *Executor {
	return &Executor{CPU: NewCPU(), Memory: mem}
}

// Step executes exactly one instruction at the current PC and reports
// whether the machine is still running (false once HLT has executed).
func (e *Executor) Step() (bool, error) {
	if e.Halted {
		return false, nil
	}
	instAddr := e.CPU.PC
	word, err := e.Memory.ReadWord(instAddr)
	if err != nil {
		return false, fmt.Errorf("fetch at 0x%08X: %w", instAddr, err)
	}
	inst, err := encoding.Decode(word)
	if err != nil {
		return false, fmt.Errorf("decode at 0x%08X: %w", instAddr, err)
	}

	branched := false
	switch encoding.FormatOf(inst.Op) {
	case encoding.FormatO:
		err = e.executeDataProc(inst)
	case encoding.FormatM:
		err = e.executeLoadStore(inst)
	case encoding.FormatB1:
		branched = e.executeBranch(inst, instAddr)
	case encoding.FormatB2:
		e.executeBranchLink(inst, instAddr)
		branched = true
	case encoding.FormatM1:
		err = e.executeMoveWide(inst)
	case encoding.FormatMisc:
		branched, err = e.executeMisc(inst)
	default:
		err = fmt.Errorf("unrecognized format for opcode %v", inst.Op)
	}
	if err != nil {
		return false, err
	}

	e.CPU.Cycles++
	if !branched {
		e.CPU.IncrementPC()
	}
	return !e.Halted, nil
}

// Run steps the machine until HLT, an error, or maxSteps instructions
// have executed (a runaway-program backstop; maxSteps <= 0 means
// unbounded).
func (e *Executor) Run(maxSteps int) error {
	for steps := 0; maxSteps <= 0 || steps < maxSteps; steps++ {
		running, err := e.Step()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
	return fmt.Errorf("exceeded %d instruction steps without HLT", maxSteps)
}
