package encoding

// Format M1: move-wide immediate, used both for ordinary immediate
// loads and as the two-instruction pattern that materializes an
// absolute 32-bit address through a relocation pair (§3's Relocation
// record; see Apply and AbsoluteAddressPair below).
//
//	[31:26] opcode   [25:21] Rd   [20:0] imm21
//
// Each opcode interprets imm21 differently:
//
//	ADRP        low 20 bits hold the page address;  EMU32_ADRP_HI20 patches them.
//	MOVW/MOVZ   low 19 bits hold the low half of an address; EMU32_MOV_LO19 patches them.
//	MOVK        low 13 bits hold the high half of an address; EMU32_MOV_HI13 patches them.
//	MOVN        low 19 bits hold a plain immediate that executes as its bitwise inverse; no relocation.

func encodeMoveWide(inst Instruction) (uint32, error) {
	if !fitsUnsigned(inst.Rd, 5) {
		return 0, errf("Rd %d out of range for Format M1", inst.Rd)
	}
	width := moveWideWidth(inst.Op)
	if !fitsUnsigned(inst.Imm, width) {
		return 0, errf("immediate %d does not fit in %d bits for %s", inst.Imm, width, opcodeToMnemonic[inst.Op])
	}
	return place(uint32(inst.Op), 31, 26) | place(inst.Rd, 25, 21) | place(inst.Imm, 20, 0), nil
}

func decodeMoveWide(word uint32) (Instruction, error) {
	return Instruction{
		Op:  Opcode(bits(word, 31, 26)),
		Rd:  bits(word, 25, 21),
		Imm: bits(word, 20, 0),
	}, nil
}

func moveWideWidth(op Opcode) int {
	switch op {
	case OpADRP:
		return 20
	case OpMOVK:
		return 13
	default: // OpMOVW, OpMOVN, OpMOVZ
		return 19
	}
}

// Apply patches value into word at the field kind designates,
// returning the new word. value is the (section- or link-resolved)
// address; only the bits the kind names are taken from it.
func Apply(word uint32, kind RelocKind, value uint32) (uint32, error) {
	switch kind {
	case RelocOLo12:
		if !fitsUnsigned(value, 14) {
			return 0, errf("EMU32_O_LO12 value %d does not fit in 14 bits", value)
		}
		return word&^place(0x3FFF, 13, 0) | place(value, 13, 0), nil
	case RelocAdrpHi20:
		return word&^place(0xFFFFF, 19, 0) | place(value, 19, 0), nil
	case RelocMovLo19:
		return word&^place(0x7FFFF, 18, 0) | place(value&0x7FFFF, 18, 0), nil
	case RelocMovHi13:
		return word&^place(0x1FFF, 12, 0) | place((value>>19)&0x1FFF, 12, 0), nil
	default:
		return 0, errf("unknown relocation kind %v", kind)
	}
}

// AbsoluteAddressPair builds the two placeholder Format M1 words (and
// their matching relocations) that materialize an unresolved symbol's
// eventual 32-bit address into register rd: a MOVZ carrying the low 19
// bits, followed by a MOVK carrying the high 13 bits. offset is the
// byte offset of the first word within the emitting section; the
// second word follows immediately at offset+4.
func AbsoluteAddressPair(rd uint32, symbol string, offset uint32) (lo, hi uint32, relocs []Relocation, err error) {
	lo, err = Encode(Instruction{Op: OpMOVZ, Rd: rd})
	if err != nil {
		return 0, 0, nil, err
	}
	hi, err = Encode(Instruction{Op: OpMOVK, Rd: rd})
	if err != nil {
		return 0, 0, nil, err
	}
	relocs = []Relocation{
		{Offset: offset, Symbol: symbol, Kind: RelocMovLo19},
		{Offset: offset + 4, Symbol: symbol, Kind: RelocMovHi13},
	}
	return lo, hi, relocs, nil
}
