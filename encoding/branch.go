package encoding

import "strings"

// Format B1: conditional branch to a PC-relative word offset.
//
//	[31:26] opcode(=OpB)   [25:22] cond   [21:0] imm22 (signed word count)
//
// Format B2: unconditional branch-link to a PC-relative word offset.
// BLX (register-indirect branch-link) is encoded via FormatMisc
// instead, alongside BX, since it carries a register rather than an
// offset.
//
//	[31:26] opcode(OpBL)   [25:0] imm26 (signed word count)
//
// Both grounded on encoder's branch routine (encoder/branch.go);
// offsets are counted in instruction words (each EMU32 instruction is
// 4 bytes), matching that file's PC-relative convention.

func encodeBranch(inst Instruction) (uint32, error) {
	words := int32(int32(inst.Imm) / 4)
	if !fitsSigned(words, 22) {
		return 0, errf("branch word-offset %d does not fit in imm22", words)
	}
	word := place(uint32(inst.Op), 31, 26) | place(uint32(inst.Cond), 25, 22) | place(uint32(words)&0x3FFFFF, 21, 0)
	return word, nil
}

func decodeBranch(word uint32) (Instruction, error) {
	raw := bits(word, 21, 0)
	if raw&0x200000 != 0 {
		raw |= 0xFFC00000
	}
	return Instruction{
		Op:   Opcode(bits(word, 31, 26)),
		Cond: Condition(bits(word, 25, 22)),
		Imm:  raw * 4,
	}, nil
}

func encodeBranchLink(inst Instruction) (uint32, error) {
	words := int32(int32(inst.Imm) / 4)
	if !fitsSigned(words, 26) {
		return 0, errf("branch-link word-offset %d does not fit in imm26", words)
	}
	return place(uint32(inst.Op), 31, 26) | place(uint32(words)&0x3FFFFFF, 25, 0), nil
}

func decodeBranchLink(word uint32) (Instruction, error) {
	raw := bits(word, 25, 0)
	if raw&0x2000000 != 0 {
		raw |= 0xFC000000
	}
	return Instruction{Op: Opcode(bits(word, 31, 26)), Imm: raw * 4}, nil
}

// SplitConditionalMnemonic decomposes a mnemonic token like "BEQ" into
// its base opcode and embedded condition. "B" alone carries the
// always-execute condition AL. "BL" (Format B2) and "BX"/"BLX"
// (register-indirect) have no condition field, so ok is false for them.
func SplitConditionalMnemonic(mnemonic string) (op Opcode, cond Condition, ok bool) {
	m := strings.ToUpper(mnemonic)
	switch m {
	case "B":
		return OpB, CondAL, true
	case "BL", "BX", "BLX":
		return mnemonicToOpcode[m], CondAL, false
	}
	if !strings.HasPrefix(m, "B") {
		return 0, 0, false
	}
	suffix := m[1:]
	c, found := conditionNames[suffix]
	if !found {
		return 0, 0, false
	}
	return OpB, c, true
}
