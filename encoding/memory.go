package encoding

// Format M: load/store. Grounded on encoder's memory-instruction
// routine (encoder/memory.go), generalized to EMU32's four addressing
// modes (offset / pre-indexed / post-indexed / shifted register).
//
//	[31:26] opcode   [25:21] Rt   [20:16] Rn   [15:14] addr-mode
//	[13] is-imm      [12:0] payload
//
// payload, immediate form: [12:0] imm13 (two's-complement signed offset)
// payload, register form:  [12:5] reserved  [4:0] Rm

func encodeLoadStore(inst Instruction) (uint32, error) {
	if !fitsUnsigned(inst.Rd, 5) {
		return 0, errf("Rt %d out of range for Format M", inst.Rd)
	}
	if !fitsUnsigned(inst.Rn, 5) {
		return 0, errf("Rn %d out of range for Format M", inst.Rn)
	}
	word := place(uint32(inst.Op), 31, 26) | place(inst.Rd, 25, 21) | place(inst.Rn, 20, 16) | place(uint32(inst.Mode), 15, 14)
	if inst.IsImm {
		if !fitsSigned(int32(inst.Imm), 13) {
			return 0, errf("offset %d does not fit in signed imm13", int32(inst.Imm))
		}
		word |= place(1, 13, 13) | place(inst.Imm&0x1FFF, 12, 0)
		return word, nil
	}
	if !fitsUnsigned(inst.Rm, 5) {
		return 0, errf("Rm %d out of range for Format M", inst.Rm)
	}
	word |= place(inst.Rm, 4, 0)
	return word, nil
}

func decodeLoadStore(word uint32) (Instruction, error) {
	inst := Instruction{
		Op:    Opcode(bits(word, 31, 26)),
		Rd:    bits(word, 25, 21),
		Rn:    bits(word, 20, 16),
		Mode:  AddrMode(bits(word, 15, 14)),
		IsImm: bits(word, 13, 13) == 1,
	}
	if inst.IsImm {
		raw := bits(word, 12, 0)
		if raw&0x1000 != 0 {
			raw |= 0xFFFFE000 // sign-extend 13-bit field.
		}
		inst.Imm = raw
		return inst, nil
	}
	inst.Rm = bits(word, 4, 0)
	return inst, nil
}
