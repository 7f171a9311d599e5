package vm

import "github.com/lookbusy1344/emu32asm/encoding"

// Flags holds the NZCV condition flags (§6.2, GLOSSARY). Ported in
// algorithm from the teacher's CPSR flag-calculation helpers
// (vm/flags.go's CalculateAddCarry/CalculateAddOverflow/
// CalculateSubCarry/CalculateSubOverflow/CalculateShiftCarry), renamed
// off ARM's CPSR register model since EMU32 has no status register
// beyond the four condition bits.
type Flags struct {
	N bool // Negative: result's sign bit set.
	Z bool // Zero: result == 0.
	C bool // Carry: unsigned overflow (arithmetic) or last bit shifted out.
	V bool // Overflow: signed overflow.
}

// UpdateNZ sets N and Z from result, leaving C and V untouched.
func (f *Flags) UpdateNZ(result uint32) {
	f.N = result&0x80000000 != 0
	f.Z = result == 0
}

// UpdateNZC sets N, Z and C — the logical-operation flag set.
func (f *Flags) UpdateNZC(result uint32, carry bool) {
	f.UpdateNZ(result)
	f.C = carry
}

// UpdateNZCV sets all four flags — the arithmetic-operation flag set.
func (f *Flags) UpdateNZCV(result uint32, carry, overflow bool) {
	f.UpdateNZ(result)
	f.C = carry
	f.V = overflow
}

// CalculateAddCarry reports whether a+b overflowed unsigned 32 bits.
func CalculateAddCarry(a, b, result uint32) bool {
	return result < a
}

// CalculateAddOverflow reports whether a+b overflowed signed 32 bits:
// operands share a sign but the result's sign differs from both.
func CalculateAddOverflow(a, b, result uint32) bool {
	aSign := a >> 31
	bSign := b >> 31
	rSign := result >> 31
	return aSign == bSign && aSign != rSign
}

// CalculateSubCarry reports whether a-b required no borrow (a >= b
// unsigned) — EMU32 follows the ARM convention that carry means "no
// borrow" for subtraction, the inverse of the x86 convention.
func CalculateSubCarry(a, b uint32) bool {
	return a >= b
}

// CalculateSubOverflow reports whether a-b overflowed signed 32 bits.
func CalculateSubOverflow(a, b, result uint32) bool {
	aSign := a >> 31
	bSign := b >> 31
	rSign := result >> 31
	return aSign != bSign && aSign != rSign
}

// CalculateShiftCarry returns the last bit shifted out of value by a
// shift of the given type and amount, or the current carry if the
// shift amount is zero (a no-op shift leaves C unchanged).
func CalculateShiftCarry(value uint32, amount uint32, kind encoding.ShiftType, currentCarry bool) bool {
	if amount == 0 {
		return currentCarry
	}
	switch kind {
	case encoding.ShiftLSL:
		if amount > 32 {
			return false
		}
		if amount == 32 {
			return value&1 != 0
		}
		return value&(1<<(32-amount)) != 0
	case encoding.ShiftLSR:
		if amount > 32 {
			return false
		}
		if amount == 32 {
			return value&0x80000000 != 0
		}
		return value&(1<<(amount-1)) != 0
	case encoding.ShiftASR:
		if amount >= 32 {
			return value&0x80000000 != 0
		}
		return value&(1<<(amount-1)) != 0
	case encoding.ShiftROR:
		amount %= 32
		if amount == 0 {
			return currentCarry
		}
		return value&(1<<(amount-1)) != 0
	}
	return currentCarry
}

// PerformShift applies a shift of kind to value by amount, following
// EMU32's fixed (non-register-indirect) shift field semantics.
func PerformShift(value uint32, amount uint32, kind encoding.ShiftType) uint32 {
	switch kind {
	case encoding.ShiftLSL:
		if amount >= 32 {
			return 0
		}
		return value << amount
	case encoding.ShiftLSR:
		if amount >= 32 {
			return 0
		}
		return value >> amount
	case encoding.ShiftASR:
		if amount >= 32 {
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF
			}
			return 0
		}
		result := value >> amount
		if value&0x80000000 != 0 {
			result |= 0xFFFFFFFF << (32 - amount)
		}
		return result
	case encoding.ShiftROR:
		amount %= 32
		if amount == 0 {
			return value
		}
		return (value >> amount) | (value << (32 - amount))
	}
	return value
}

// EvaluateCondition reports whether cond is satisfied by the current
// flags, per §6.2's branch-flag contract.
func (f Flags) EvaluateCondition(cond encoding.Condition) bool {
	switch cond {
	case encoding.CondEQ:
		return f.Z
	case encoding.CondNE:
		return !f.Z
	case encoding.CondCS:
		return f.C
	case encoding.CondCC:
		return !f.C
	case encoding.CondMI:
		return f.N
	case encoding.CondPL:
		return !f.N
	case encoding.CondVS:
		return f.V
	case encoding.CondVC:
		return !f.V
	case encoding.CondHI:
		return f.C && !f.Z
	case encoding.CondLS:
		return !f.C || f.Z
	case encoding.CondGE:
		return f.N == f.V
	case encoding.CondLT:
		return f.N != f.V
	case encoding.CondGT:
		return !f.Z && f.N == f.V
	case encoding.CondLE:
		return f.Z || f.N != f.V
	case encoding.CondAL:
		return true
	case encoding.CondNV:
		return false
	default:
		return false
	}
}
