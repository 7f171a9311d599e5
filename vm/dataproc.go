package vm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/encoding"
)

// logicalOps update N, Z, C (never V) when S is set — grouped the way
// the teacher's ExecuteDataProcessing switches on flag-update shape.
var logicalOps = map[encoding.Opcode]bool{
	encoding.OpAND: true, encoding.OpORR: true, encoding.OpEOR: true,
	encoding.OpBIC: true, encoding.OpMOV: true, encoding.OpMVN: true,
	encoding.OpTST: true, encoding.OpTEQ: true,
}

// executeDataProc runs one Format O instruction: ALU ops, shifts and
// multiply, all sharing the Rd/Rn/(Rm-or-imm) operand shape. Ported in
// algorithm from the teacher's ExecuteDataProcessing, generalized from
// ARM's rotated-immediate/shift-modifier encoding to EMU32's flat
// imm14 and dedicated LSL/LSR/ASR/ROR/MUL/MLA opcodes.
func (e *Executor) executeDataProc(inst encoding.Instruction) error {
	op1 := e.CPU.GetRegister(inst.Rn)

	var op2 uint32
	var shiftCarry bool
	if inst.IsImm {
		op2 = inst.Imm
		shiftCarry = e.CPU.Flags.C
	} else {
		rm := e.CPU.GetRegister(inst.Rm)
		shiftCarry = CalculateShiftCarry(rm, inst.ShiftAmt, inst.Shift, e.CPU.Flags.C)
		op2 = PerformShift(rm, inst.ShiftAmt, inst.Shift)
	}

	var result uint32
	var carry, overflow bool
	writeResult := true
	updateFlags := inst.SetFlags

	switch inst.Op {
	case encoding.OpAND:
		result, carry = op1&op2, shiftCarry
	case encoding.OpEOR:
		result, carry = op1^op2, shiftCarry
	case encoding.OpORR:
		result, carry = op1|op2, shiftCarry
	case encoding.OpBIC:
		result, carry = op1&^op2, shiftCarry
	case encoding.OpMOV:
		result, carry = op2, shiftCarry
	case encoding.OpMVN:
		result, carry = ^op2, shiftCarry
	case encoding.OpTST:
		result, carry, writeResult, updateFlags = op1&op2, shiftCarry, false, true
	case encoding.OpTEQ:
		result, carry, writeResult, updateFlags = op1^op2, shiftCarry, false, true

	case encoding.OpADD:
		result = op1 + op2
		carry, overflow = CalculateAddCarry(op1, op2, result), CalculateAddOverflow(op1, op2, result)
	case encoding.OpCMN:
		result = op1 + op2
		carry, overflow = CalculateAddCarry(op1, op2, result), CalculateAddOverflow(op1, op2, result)
		writeResult, updateFlags = false, true
	case encoding.OpADC:
		carryIn := boolToWord(e.CPU.Flags.C)
		sum := op1 + op2
		result = sum + carryIn
		carry = CalculateAddCarry(op1, op2, sum) || CalculateAddCarry(sum, carryIn, result)
		overflow = CalculateAddOverflow(op1, op2, result)

	case encoding.OpSUB:
		result = op1 - op2
		carry, overflow = CalculateSubCarry(op1, op2), CalculateSubOverflow(op1, op2, result)
	case encoding.OpCMP:
		result = op1 - op2
		carry, overflow = CalculateSubCarry(op1, op2), CalculateSubOverflow(op1, op2, result)
		writeResult, updateFlags = false, true
	case encoding.OpRSB:
		result = op2 - op1
		carry, overflow = CalculateSubCarry(op2, op1), CalculateSubOverflow(op2, op1, result)
	case encoding.OpSBC:
		borrowIn := 1 - boolToWord(e.CPU.Flags.C)
		result = op1 - op2 - borrowIn
		carry = CalculateSubCarry(op1, op2+borrowIn)
		overflow = CalculateSubOverflow(op1, op2+borrowIn, result)
	case encoding.OpRSC:
		borrowIn := 1 - boolToWord(e.CPU.Flags.C)
		result = op2 - op1 - borrowIn
		carry = CalculateSubCarry(op2, op1+borrowIn)
		overflow = CalculateSubOverflow(op2, op1+borrowIn, result)

	case encoding.OpLSL:
		result, carry = PerformShift(op1, op2, encoding.ShiftLSL), CalculateShiftCarry(op1, op2, encoding.ShiftLSL, e.CPU.Flags.C)
	case encoding.OpLSR:
		result, carry = PerformShift(op1, op2, encoding.ShiftLSR), CalculateShiftCarry(op1, op2, encoding.ShiftLSR, e.CPU.Flags.C)
	case encoding.OpASR:
		result, carry = PerformShift(op1, op2, encoding.ShiftASR), CalculateShiftCarry(op1, op2, encoding.ShiftASR, e.CPU.Flags.C)
	case encoding.OpROR:
		result, carry = PerformShift(op1, op2, encoding.ShiftROR), CalculateShiftCarry(op1, op2, encoding.ShiftROR, e.CPU.Flags.C)

	case encoding.OpMUL:
		result = op1 * op2
	case encoding.OpMLA:
		// Rd holds the running accumulator: Rd += Rn*op2.
		result = e.CPU.GetRegister(inst.Rd) + op1*op2

	default:
		return fmt.Errorf("opcode %v is not a Format O instruction", inst.Op)
	}

	if writeResult {
		e.CPU.SetRegister(inst.Rd, result)
	}
	if updateFlags {
		if logicalOps[inst.Op] {
			e.CPU.Flags.UpdateNZC(result, carry)
		} else {
			e.CPU.Flags.UpdateNZCV(result, carry, overflow)
		}
	}
	return nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
