package vm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/encoding"
)

// executeLoadStore runs one Format M instruction (LDR/STR family),
// computing the effective address per the addressing mode and
// performing the writeback §4.6 defines for pre/post-indexed forms.
func (e *Executor) executeLoadStore(inst encoding.Instruction) error {
	base := e.CPU.GetRegister(inst.Rn)

	var offset uint32
	if inst.IsImm {
		offset = inst.Imm
	} else {
		offset = e.CPU.GetRegister(inst.Rm)
	}

	var addr uint32
	switch inst.Mode {
	case encoding.ModeOffset, encoding.ModeShiftedReg:
		addr = base + offset
	case encoding.ModePreIndexed:
		addr = base + offset
		e.CPU.SetRegister(inst.Rn, addr)
	case encoding.ModePostIndexed:
		addr = base
		e.CPU.SetRegister(inst.Rn, base+offset)
	default:
		return fmt.Errorf("unknown addressing mode %v", inst.Mode)
	}

	switch inst.Op {
	case encoding.OpLDR:
		v, err := e.Memory.ReadWord(addr)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(inst.Rd, v)
	case encoding.OpSTR:
		return e.Memory.WriteWord(addr, e.CPU.GetRegister(inst.Rd))
	case encoding.OpLDRB:
		v, err := e.Memory.ReadByte(addr)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(inst.Rd, uint32(v))
	case encoding.OpSTRB:
		return e.Memory.WriteByte(addr, byte(e.CPU.GetRegister(inst.Rd)))
	case encoding.OpLDRH:
		v, err := e.Memory.ReadHalfword(addr)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(inst.Rd, uint32(v))
	case encoding.OpSTRH:
		return e.Memory.WriteHalfword(addr, uint16(e.CPU.GetRegister(inst.Rd)))
	case encoding.OpLDRSB:
		v, err := e.Memory.ReadByte(addr)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(inst.Rd, signExtend(uint32(v), 8))
	case encoding.OpLDRSH:
		v, err := e.Memory.ReadHalfword(addr)
		if err != nil {
			return err
		}
		e.CPU.SetRegister(inst.Rd, signExtend(uint32(v), 16))
	default:
		return fmt.Errorf("opcode %v is not a Format M instruction", inst.Op)
	}
	return nil
}

// signExtend sign-extends the low width bits of v to a full 32-bit word.
func signExtend(v uint32, width int) uint32 {
	shift := 32 - uint(width)
	return uint32(int32(v<<shift) >> shift)
}
