package encoding

// Format O: ALU reg/reg or reg/imm14. Grounded on encoder's
// data-processing routine (encoder/data_processing.go), replacing
// ARM's 12-bit rotated immediate with EMU32's flat imm14 field.
//
//	[31:26] opcode   [25] S   [24:20] Rd   [19:15] Rn
//	[14] is-imm      [13:0] payload
//
// payload, register form: [13:9] Rm  [8:7] shift-type  [6:2] shift-amt  [1:0] reserved
// payload, immediate form: [13:0] imm14 (unsigned)

func encodeDataProc(inst Instruction) (uint32, error) {
	if !fitsUnsigned(inst.Rd, 5) {
		return 0, errf("Rd %d out of range for Format O", inst.Rd)
	}
	if !fitsUnsigned(inst.Rn, 5) {
		return 0, errf("Rn %d out of range for Format O", inst.Rn)
	}
	word := place(uint32(inst.Op), 31, 26) | place(inst.Rd, 24, 20) | place(inst.Rn, 19, 15)
	if inst.SetFlags {
		word |= place(1, 25, 25)
	}
	if inst.IsImm {
		if !fitsUnsigned(inst.Imm, 14) {
			return 0, errf("immediate %d does not fit in imm14", inst.Imm)
		}
		word |= place(1, 14, 14) | place(inst.Imm, 13, 0)
		return word, nil
	}
	if !fitsUnsigned(inst.Rm, 5) {
		return 0, errf("Rm %d out of range for Format O", inst.Rm)
	}
	if !fitsUnsigned(inst.ShiftAmt, 5) {
		return 0, errf("shift amount %d out of range for Format O", inst.ShiftAmt)
	}
	payload := place(inst.Rm, 13, 9) | place(uint32(inst.Shift), 8, 7) | place(inst.ShiftAmt, 6, 2)
	word |= payload
	return word, nil
}

func decodeDataProc(word uint32) (Instruction, error) {
	inst := Instruction{
		Op:       Opcode(bits(word, 31, 26)),
		SetFlags: bits(word, 25, 25) == 1,
		Rd:       bits(word, 24, 20),
		Rn:       bits(word, 19, 15),
		IsImm:    bits(word, 14, 14) == 1,
	}
	if inst.IsImm {
		inst.Imm = bits(word, 13, 0)
		return inst, nil
	}
	inst.Rm = bits(word, 13, 9)
	inst.Shift = ShiftType(bits(word, 8, 7))
	inst.ShiftAmt = bits(word, 6, 2)
	return inst, nil
}
