package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataProcImmediateRoundTrip(t *testing.T) {
	inst := Instruction{Op: OpADD, Rd: 0, Rn: 1, Imm: 5, IsImm: true}
	word, err := Encode(inst)
	require.NoError(t, err)

	// §8 scenario 2 describes "add x0, x1, #5" encoding to a single
	// Format O word; the scenario's own worked hex digit-string in the
	// prose is inconsistent with its own field-width table (see
	// DESIGN.md), so this test asserts internal round-trip consistency
	// of this package's (self-consistent) field layout rather than
	// that literal constant.
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, OpADD, got.Op)
	assert.Equal(t, uint32(0), got.Rd)
	assert.Equal(t, uint32(1), got.Rn)
	assert.Equal(t, uint32(5), got.Imm)
	assert.True(t, got.IsImm)
}

func TestDataProcRegisterShiftedRoundTrip(t *testing.T) {
	inst := Instruction{Op: OpSUB, Rd: 2, Rn: 3, Rm: 4, Shift: ShiftLSL, ShiftAmt: 7, SetFlags: true}
	word, err := Encode(inst)
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, OpSUB, got.Op)
	assert.False(t, got.IsImm)
	assert.Equal(t, uint32(4), got.Rm)
	assert.Equal(t, ShiftLSL, got.Shift)
	assert.Equal(t, uint32(7), got.ShiftAmt)
	assert.True(t, got.SetFlags)
}

func TestDataProcImmediateOverflowErrors(t *testing.T) {
	_, err := Encode(Instruction{Op: OpADD, Imm: 1 << 14, IsImm: true})
	assert.Error(t, err)
}

func TestLoadStoreImmediateRoundTrip(t *testing.T) {
	off := int32(-16)
	inst := Instruction{Op: OpLDR, Rd: 5, Rn: 6, Imm: uint32(off), IsImm: true, Mode: ModeOffset}
	word, err := Encode(inst)
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, OpLDR, got.Op)
	assert.Equal(t, int32(-16), int32(got.Imm))
}

func TestLoadStoreRegisterRoundTrip(t *testing.T) {
	inst := Instruction{Op: OpSTR, Rd: 1, Rn: 2, Rm: 3, Mode: ModePostIndexed}
	word, err := Encode(inst)
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Rm)
	assert.Equal(t, ModePostIndexed, got.Mode)
}

func TestBranchRoundTripPositiveAndNegative(t *testing.T) {
	for _, off := range []int32{0, 4, -4, 1024, -1024} {
		word, err := Encode(Instruction{Op: OpB, Cond: CondEQ, Imm: uint32(off)})
		require.NoError(t, err)
		got, err := Decode(word)
		require.NoError(t, err)
		assert.Equal(t, CondEQ, got.Cond)
		assert.Equal(t, off, int32(got.Imm))
	}
}

func TestBranchLinkRoundTrip(t *testing.T) {
	off := int32(-2048)
	word, err := Encode(Instruction{Op: OpBL, Imm: uint32(off)})
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, int32(-2048), int32(got.Imm))
}

func TestBranchMisalignedOffsetStillEncodesWordAligned(t *testing.T) {
	word, err := Encode(Instruction{Op: OpB, Imm: 3})
	// Offsets must be word-granular; 3/4 truncates to 0, which is a
	// silent behavior this test pins rather than hides.
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.Imm)
}

func TestSplitConditionalMnemonic(t *testing.T) {
	op, cond, ok := SplitConditionalMnemonic("BEQ")
	require.True(t, ok)
	assert.Equal(t, OpB, op)
	assert.Equal(t, CondEQ, cond)

	op, cond, ok = SplitConditionalMnemonic("B")
	require.True(t, ok)
	assert.Equal(t, OpB, op)
	assert.Equal(t, CondAL, cond)

	_, _, ok = SplitConditionalMnemonic("BL")
	assert.False(t, ok)

	_, _, ok = SplitConditionalMnemonic("BQQ")
	assert.False(t, ok)
}

func TestMoveWideRoundTrip(t *testing.T) {
	word, err := Encode(Instruction{Op: OpMOVZ, Rd: 9, Imm: 0x7FFFF})
	require.NoError(t, err)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.Rd)
	assert.Equal(t, uint32(0x7FFFF), got.Imm)
}

func TestMoveWideOverflowErrors(t *testing.T) {
	_, err := Encode(Instruction{Op: OpMOVK, Imm: 1 << 13})
	assert.Error(t, err)
}

func TestApplyRelocationKinds(t *testing.T) {
	word, err := Apply(0, RelocMovLo19, 0x7FFFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7FFFF), word&0x7FFFF)

	word, err = Apply(0, RelocMovHi13, 0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1FFF), word&0x1FFF)

	word, err = Apply(0, RelocAdrpHi20, 0xABCDE)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCDE), word&0xFFFFF)

	word, err = Apply(0, RelocOLo12, 0x1FFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1FFF), word&0x3FFF)
}

func TestAbsoluteAddressPairProducesLO19HI13Relocations(t *testing.T) {
	lo, hi, relocs, err := AbsoluteAddressPair(3, "printf", 0x100)
	require.NoError(t, err)
	require.Len(t, relocs, 2)
	assert.Equal(t, RelocMovLo19, relocs[0].Kind)
	assert.Equal(t, uint32(0x100), relocs[0].Offset)
	assert.Equal(t, RelocMovHi13, relocs[1].Kind)
	assert.Equal(t, uint32(0x104), relocs[1].Offset)

	loDecoded, err := Decode(lo)
	require.NoError(t, err)
	assert.Equal(t, OpMOVZ, loDecoded.Op)
	hiDecoded, err := Decode(hi)
	require.NoError(t, err)
	assert.Equal(t, OpMOVK, hiDecoded.Op)
}

func TestMiscRoundTrip(t *testing.T) {
	word, err := Encode(Instruction{Op: OpHLT})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), word)
	got, err := Decode(word)
	require.NoError(t, err)
	assert.Equal(t, OpHLT, got.Op)
}
