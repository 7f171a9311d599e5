package vm

import (
	"encoding/binary"
	"testing"

	"github.com/lookbusy1344/emu32asm/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// program assembles a sequence of already-built instructions into a
// flat little-endian word stream starting at address 0.
func program(t *testing.T, insts ...encoding.Instruction) *Memory {
	t.Helper()
	mem := NewMemory(4096)
	buf := make([]byte, 4)
	for i, inst := range insts {
		word, err := encoding.Encode(inst)
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf, word)
		require.NoError(t, mem.LoadAt(uint32(i*4), buf))
	}
	return mem
}

func TestExecutorHaltsOnHlt(t *testing.T) {
	mem := program(t, encoding.Instruction{Op: encoding.OpHLT})
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.True(t, exec.Halted)
	assert.EqualValues(t, 4, exec.CPU.PC)
	assert.EqualValues(t, 1, exec.CPU.Cycles)
}

func TestExecutorAddSetsFlagsAndHalts(t *testing.T) {
	// add x0, x1, #5 ; x1 starts at 0, so this also exercises CalculateAddCarry/Overflow at zero.
	mem := program(t,
		encoding.Instruction{Op: encoding.OpADD, Rd: 0, Rn: 1, Imm: 5, IsImm: true, SetFlags: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 5, exec.CPU.GetRegister(0))
	assert.False(t, exec.CPU.Flags.Z)
	assert.False(t, exec.CPU.Flags.N)
	assert.False(t, exec.CPU.Flags.C)
	assert.False(t, exec.CPU.Flags.V)
}

func TestExecutorCmpSetsZeroFlagWithoutWritingRd(t *testing.T) {
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 0, Imm: 7, IsImm: true},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 1, Imm: 7, IsImm: true},
		encoding.Instruction{Op: encoding.OpCMP, Rd: 9, Rn: 0, Rm: 1, SetFlags: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.True(t, exec.CPU.Flags.Z)
	assert.True(t, exec.CPU.Flags.C, "CMP of equal operands must report no borrow")
	assert.EqualValues(t, 0, exec.CPU.GetRegister(9), "CMP must not write its Rd")
}

func TestExecutorConditionalBranchTaken(t *testing.T) {
	// cmp x0, x1 (both zero, so EQ holds) ; beq +8 (skip the next instruction) ; mov x2, #1 ; mov x2, #2 ; hlt
	mem := program(t,
		encoding.Instruction{Op: encoding.OpCMP, Rn: 0, Rm: 1, SetFlags: true},
		encoding.Instruction{Op: encoding.OpB, Cond: encoding.CondEQ, Imm: 8},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 2, Imm: 1, IsImm: true},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 2, Imm: 2, IsImm: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 2, exec.CPU.GetRegister(2), "branch should have skipped the mov #1")
}

func TestExecutorBranchNotTakenFallsThrough(t *testing.T) {
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 0, Imm: 1, IsImm: true},
		encoding.Instruction{Op: encoding.OpCMP, Rn: 0, Imm: 0, IsImm: true, SetFlags: true},
		encoding.Instruction{Op: encoding.OpB, Cond: encoding.CondEQ, Imm: 8},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 2, Imm: 9, IsImm: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 9, exec.CPU.GetRegister(2), "condition false: branch must not be taken")
}

func TestExecutorLoadStoreRoundTrip(t *testing.T) {
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 1, Imm: 0x55, IsImm: true},
		encoding.Instruction{Op: encoding.OpSTR, Rd: 1, Rn: 31, Imm: 0x100, IsImm: true, Mode: encoding.ModeOffset},
		encoding.Instruction{Op: encoding.OpLDR, Rd: 2, Rn: 31, Imm: 0x100, IsImm: true, Mode: encoding.ModeOffset},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)
	exec.CPU.SetSP(0x200)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 0x55, exec.CPU.GetRegister(2))
}

func TestExecutorPreIndexedAddressingWriteBack(t *testing.T) {
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 1, Imm: 0x200, IsImm: true},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 2, Imm: 0xAA, IsImm: true},
		encoding.Instruction{Op: encoding.OpSTR, Rd: 2, Rn: 1, Imm: 4, IsImm: true, Mode: encoding.ModePreIndexed},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 0x204, exec.CPU.GetRegister(1), "pre-indexed store must write back Rn")
	v, err := exec.Memory.ReadWord(0x204)
	require.NoError(t, err)
	assert.EqualValues(t, 0xAA, v)
}

func TestExecutorPushPopRoundTrip(t *testing.T) {
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 0, Imm: 11, IsImm: true},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 1, Imm: 22, IsImm: true},
		encoding.Instruction{Op: encoding.OpPUSH, Imm: (1 << 0) | (1 << 1)},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 0, Imm: 0, IsImm: true},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 1, Imm: 0, IsImm: true},
		encoding.Instruction{Op: encoding.OpPOP, Imm: (1 << 0) | (1 << 1)},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)
	exec.CPU.SetSP(0x400)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 11, exec.CPU.GetRegister(0))
	assert.EqualValues(t, 22, exec.CPU.GetRegister(1))
	assert.EqualValues(t, 0x400, exec.CPU.GetSP(), "SP must return to its starting value")
}

func TestExecutorMoveWideAbsoluteAddressMaterialization(t *testing.T) {
	// movz x3, #0x1234 ; movk x3, #0x5 (high 13 bits) ; hlt
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOVZ, Rd: 3, Imm: 0x1234},
		encoding.Instruction{Op: encoding.OpMOVK, Rd: 3, Imm: 0x5},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 0x1234|(0x5<<19), exec.CPU.GetRegister(3))
}

func TestExecutorBranchLinkSavesReturnAddress(t *testing.T) {
	// bl +8 ; mov x9, #1 ; hlt(target)
	mem := program(t,
		encoding.Instruction{Op: encoding.OpBL, Imm: 8},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 9, Imm: 1, IsImm: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 4, exec.CPU.GetLR(), "bl must save the word after itself")
	assert.EqualValues(t, 0, exec.CPU.GetRegister(9), "branch-link must skip the next instruction")
}

func TestExecutorBlxIsRegisterIndirectUnlikeBl(t *testing.T) {
	// x4 holds the target address (the hlt at word 3); blx x4 ; mov x9, #1 (skipped) ; hlt
	mem := program(t,
		encoding.Instruction{Op: encoding.OpMOV, Rd: 4, Imm: 12, IsImm: true},
		encoding.Instruction{Op: encoding.OpBLX, Imm: 4},
		encoding.Instruction{Op: encoding.OpMOV, Rd: 9, Imm: 1, IsImm: true},
		encoding.Instruction{Op: encoding.OpHLT},
	)
	exec := NewExecutor(mem)

	require.NoError(t, exec.Run(10))
	assert.EqualValues(t, 8, exec.CPU.GetLR(), "blx must save the word after itself")
	assert.EqualValues(t, 0, exec.CPU.GetRegister(9), "blx jumped straight to the register target")
	assert.True(t, exec.Halted)
}

func TestExecutorRunReportsRunawayProgram(t *testing.T) {
	// b . (branch to itself): zeroed memory decodes as HLT, so the loop
	// must not fall through to it.
	mem := program(t, encoding.Instruction{Op: encoding.OpB, Cond: encoding.CondAL, Imm: 0})
	exec := NewExecutor(mem)

	err := exec.Run(3)
	require.Error(t, err)
	assert.False(t, exec.Halted)
}

func TestFlagsEvaluateConditionCoversSignedComparisons(t *testing.T) {
	f := Flags{N: true, V: false}
	assert.True(t, f.EvaluateCondition(encoding.CondLT), "N != V means LT")
	assert.False(t, f.EvaluateCondition(encoding.CondGE))
}

func TestMemoryRejectsUnalignedWordAccess(t *testing.T) {
	mem := NewMemory(16)
	_, err := mem.ReadWord(1)
	require.Error(t, err)
}

func TestMemoryOutOfBoundsAccessErrors(t *testing.T) {
	mem := NewMemory(4)
	_, err := mem.ReadWord(4)
	require.Error(t, err)
}
