package asm

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/emu32asm/encoding"
	"github.com/lookbusy1344/emu32asm/object"
	"github.com/lookbusy1344/emu32asm/section"
	"github.com/lookbusy1344/emu32asm/symtab"
	"github.com/lookbusy1344/emu32asm/token"
)

// twoOperandMnemonics take (Rd, Op2) with no Rn.
var twoOperandMnemonics = map[string]bool{"MOV": true, "MVN": true}

// compareMnemonics take (Rn, Op2), writing no destination register and
// always setting flags.
var compareMnemonics = map[string]bool{"CMP": true, "CMN": true, "TST": true, "TEQ": true}

// emitWord appends word (little-endian) to the active section and
// returns its byte offset within that section.
func (a *Assembler) emitWord(word uint32) (uint32, error) {
	off := a.sections.Cursor()
	bs := []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
	if err := a.sections.EmitBytes(bs); err != nil {
		return 0, err
	}
	return off, nil
}

func (a *Assembler) addReloc(offset uint32, symbol string, kind encoding.RelocKind) {
	sec := a.sections.Active()
	a.relocs[sec] = append(a.relocs[sec], object.Relocation{
		SectionIdx: uint16(sec), Offset: offset, Symbol: symbol, Kind: kind,
	})
}

// runInstruction implements the §4.6 Instruction Encoder: mnemonic +
// operands + source span -> word(s) + optional relocations, dispatched
// by which bit-field Format the mnemonic belongs to.
func (a *Assembler) runInstruction(tok token.Token, line []token.Token) error {
	mnemonic := tok.Lexeme
	groups := splitOperands(line)
	if len(groups) == 1 && len(groups[0]) == 0 {
		groups = nil
	}

	if op, ok := encoding.MnemonicToOpcode(mnemonic); ok {
		switch encoding.FormatOf(op) {
		case encoding.FormatMisc:
			return a.encodeMiscInst(op, mnemonic, groups)
		case encoding.FormatM1:
			return a.encodeMoveWideInst(op, groups)
		case encoding.FormatM:
			return a.encodeLoadStoreInst(op, mnemonic, groups)
		case encoding.FormatB1:
			return a.encodeBranchInst(op, encoding.CondAL, mnemonic, groups, tok)
		case encoding.FormatB2:
			return a.encodeBranchLinkInst(op, groups, tok)
		default:
			return a.encodeDataProcInst(op, mnemonic, groups)
		}
	}
	if op, cond, ok := encoding.SplitConditionalMnemonic(mnemonic); ok {
		return a.encodeBranchInst(op, cond, mnemonic, groups, tok)
	}
	return fmt.Errorf("unrecognized mnemonic %q", mnemonic)
}

func (a *Assembler) encodeDataProcInst(op encoding.Opcode, mnemonic string, groups [][]token.Token) error {
	inst := encoding.Instruction{Op: op, SetFlags: compareMnemonics[mnemonic]}

	switch {
	case twoOperandMnemonics[mnemonic]:
		if len(groups) < 2 {
			return fmt.Errorf("%s requires Rd, operand", mnemonic)
		}
		rd, err := registerNumber(groups[0][0])
		if err != nil {
			return err
		}
		inst.Rd = rd
		if err := a.fillOp2(&inst, groups[1]); err != nil {
			return err
		}
	case compareMnemonics[mnemonic]:
		if len(groups) < 2 {
			return fmt.Errorf("%s requires Rn, operand", mnemonic)
		}
		rn, err := registerNumber(groups[0][0])
		if err != nil {
			return err
		}
		inst.Rn = rn
		if err := a.fillOp2(&inst, groups[1]); err != nil {
			return err
		}
	default:
		if len(groups) < 3 {
			return fmt.Errorf("%s requires Rd, Rn, operand", mnemonic)
		}
		rd, err := registerNumber(groups[0][0])
		if err != nil {
			return err
		}
		rn, err := registerNumber(groups[1][0])
		if err != nil {
			return err
		}
		inst.Rd, inst.Rn = rd, rn
		if err := a.fillOp2(&inst, groups[2]); err != nil {
			return err
		}
		if len(groups) == 4 {
			if err := a.applyShiftGroup(&inst, groups[3]); err != nil {
				return err
			}
		}
	}

	word, err := encoding.Encode(inst)
	if err != nil {
		return err
	}
	_, err = a.emitWord(word)
	return err
}

// fillOp2 fills inst's Rm/IsImm/Imm fields for a register-or-immediate
// operand, '#' prefix selecting the immediate form.
func (a *Assembler) fillOp2(inst *encoding.Instruction, ops []token.Token) error {
	if isImmediate(ops) {
		v, err := a.evalExpr(ops[1:])
		if err != nil {
			return err
		}
		inst.IsImm = true
		inst.Imm = v
		return nil
	}
	if len(ops) == 0 {
		return fmt.Errorf("missing operand")
	}
	rm, err := registerNumber(ops[0])
	if err != nil {
		return err
	}
	inst.Rm = rm
	return nil
}

var shiftNames = map[string]encoding.ShiftType{
	"LSL": encoding.ShiftLSL, "LSR": encoding.ShiftLSR,
	"ASR": encoding.ShiftASR, "ROR": encoding.ShiftROR,
}

// applyShiftGroup parses a trailing "LSL #n" style operand group onto
// a register-form Format O instruction.
func (a *Assembler) applyShiftGroup(inst *encoding.Instruction, ops []token.Token) error {
	if len(ops) < 2 {
		return fmt.Errorf("expected shift spec, e.g. 'LSL #2'")
	}
	st, ok := shiftNames[strings.ToUpper(ops[0].Lexeme)]
	if !ok {
		return fmt.Errorf("unknown shift type %q", ops[0].Lexeme)
	}
	if !isImmediate(ops[1:]) {
		return fmt.Errorf("shift amount must be an immediate")
	}
	amt, err := a.evalExpr(ops[2:])
	if err != nil {
		return err
	}
	inst.Shift = st
	inst.ShiftAmt = amt
	return nil
}

func (a *Assembler) encodeLoadStoreInst(op encoding.Opcode, mnemonic string, groups [][]token.Token) error {
	if len(groups) < 2 {
		return fmt.Errorf("%s requires Rt, [address]", mnemonic)
	}
	rt, err := registerNumber(groups[0][0])
	if err != nil {
		return err
	}
	inst := encoding.Instruction{Op: op, Rd: rt}
	if err := a.fillAddress(&inst, groups[1:]); err != nil {
		return err
	}
	word, err := encoding.Encode(inst)
	if err != nil {
		return err
	}
	_, err = a.emitWord(word)
	return err
}

// fillAddress parses the '[Rn]'/'[Rn, #imm]'/'[Rn, #imm]!'/
// '[Rn], #imm'/'[Rn, Rm]' addressing forms (§4.6 Format M modes).
func (a *Assembler) fillAddress(inst *encoding.Instruction, rest [][]token.Token) error {
	bracket := rest[0]
	if len(bracket) == 0 || bracket[0].Kind != token.LBracket {
		return fmt.Errorf("expected '[Rn...]' addressing operand")
	}
	bang := bracket[len(bracket)-1].Kind == token.Bang
	closeIdx := len(bracket) - 1
	if bang {
		closeIdx--
	}
	if closeIdx < 0 || bracket[closeIdx].Kind != token.RBracket {
		return fmt.Errorf("unterminated '[...]' addressing operand")
	}
	inner := bracket[1:closeIdx]
	if len(inner) == 0 {
		return fmt.Errorf("empty addressing operand")
	}
	rn, err := registerNumber(inner[0])
	if err != nil {
		return err
	}
	inst.Rn = rn

	switch {
	case len(inner) == 1 && len(rest) == 1:
		inst.Mode = encoding.ModeOffset
		inst.IsImm = true
		inst.Imm = 0
	case len(inner) == 1 && len(rest) == 2:
		inst.Mode = encoding.ModePostIndexed
		inst.IsImm = true
		v, err := a.evalExpr(stripHash(rest[1]))
		if err != nil {
			return err
		}
		inst.Imm = v
	case len(inner) >= 2 && inner[1].Kind == token.Comma:
		operand := inner[2:]
		if isImmediate(operand) {
			inst.Mode = encoding.ModeOffset
			if bang {
				inst.Mode = encoding.ModePreIndexed
			}
			inst.IsImm = true
			v, err := a.evalExpr(operand[1:])
			if err != nil {
				return err
			}
			inst.Imm = v
		} else {
			inst.Mode = encoding.ModeShiftedReg
			rm, err := registerNumber(operand[0])
			if err != nil {
				return err
			}
			inst.Rm = rm
		}
	default:
		return fmt.Errorf("unrecognized addressing operand")
	}
	return nil
}

func stripHash(ops []token.Token) []token.Token {
	if isImmediate(ops) {
		return ops[1:]
	}
	return ops
}

func (a *Assembler) encodeMoveWideInst(op encoding.Opcode, groups [][]token.Token) error {
	if len(groups) < 2 {
		return fmt.Errorf("expected Rd, operand")
	}
	rd, err := registerNumber(groups[0][0])
	if err != nil {
		return err
	}
	inst := encoding.Instruction{Op: op, Rd: rd}

	if op == encoding.OpADRP && isSymbolOperand(groups[1]) {
		name := a.resolveName(groups[1][0].Lexeme)
		word, err := encoding.Encode(inst)
		if err != nil {
			return err
		}
		off, err := a.emitWord(word)
		if err != nil {
			return err
		}
		a.addReloc(off, name, encoding.RelocAdrpHi20)
		return nil
	}

	v, err := a.evalExpr(stripHash(groups[1]))
	if err != nil {
		return err
	}
	inst.Imm = v
	word, err := encoding.Encode(inst)
	if err != nil {
		return err
	}
	_, err = a.emitWord(word)
	return err
}

func isSymbolOperand(ops []token.Token) bool {
	return len(ops) == 1 && ops[0].Kind == token.Identifier
}

// encodeBranchInst implements conditional/unconditional Format B1
// branches: a defined local target resolves to a PC-relative offset
// immediately; an undefined target is deferred as a branchFixup
// (resolved at finish()) unless it has already been declared WEAK/
// GLOBAL-undefined, in which case it is treated as external and
// materialized via the MOVZ+MOVK absolute-address pair (§4.6).
func (a *Assembler) encodeBranchInst(op encoding.Opcode, cond encoding.Condition, mnemonic string, groups [][]token.Token, tok token.Token) error {
	if len(groups) != 1 || len(groups[0]) != 1 {
		return fmt.Errorf("%s requires a single branch target", mnemonic)
	}
	return a.emitBranchToSymbol(op, cond, groups[0][0], tok)
}

// encodeBranchLinkInst implements Format B2 'bl SYMBOL': unlike BX/BLX
// (register-indirect, routed through encodeMiscInst), BL only ever
// names a branch target symbol — Format B2 has no register field.
func (a *Assembler) encodeBranchLinkInst(op encoding.Opcode, groups [][]token.Token, tok token.Token) error {
	if len(groups) != 1 || len(groups[0]) != 1 {
		return fmt.Errorf("branch-link requires a single target symbol")
	}
	operand := groups[0][0]
	if operand.Kind == token.Register {
		return fmt.Errorf("'bl' takes a symbol target, not a register (use 'blx' for register-indirect branch-link)")
	}
	return a.emitBranchToSymbol(op, encoding.CondAL, operand, tok)
}

// linkageScratch is the register the assembler targets when it must
// materialize an external branch/branch-link target's absolute
// address instead of a PC-relative offset: LR (x30), following the
// convention that a link register already holds "where control goes
// next" for the BL family. Plain unconditional/conditional B to an
// external symbol uses the same register since EMU32's operand syntax
// has no separate scratch-register convention.
const linkageScratch = 30

func (a *Assembler) emitBranchToSymbol(op encoding.Opcode, cond encoding.Condition, operand token.Token, tok token.Token) error {
	if operand.Kind != token.Identifier && operand.Kind != token.Label {
		return fmt.Errorf("expected a branch target symbol, got %s", operand)
	}
	name := a.resolveName(operand.Lexeme)
	sym, known := a.symbols.Lookup(name)

	if known && !sym.Defined && sym.Binding != symtab.LOCAL {
		lo, hi, relocs, err := encoding.AbsoluteAddressPair(linkageScratch, name, a.sections.Cursor())
		if err != nil {
			return err
		}
		if _, err := a.emitWord(lo); err != nil {
			return err
		}
		if _, err := a.emitWord(hi); err != nil {
			return err
		}
		for _, r := range relocs {
			a.addReloc(r.Offset, r.Symbol, r.Kind)
		}
		return nil
	}

	if known && sym.Defined {
		instAddr := a.sections.Cursor()
		inst := encoding.Instruction{Op: op, Cond: cond, Imm: sym.Value - instAddr}
		word, err := encoding.Encode(inst)
		if err != nil {
			return err
		}
		_, err = a.emitWord(word)
		return err
	}

	// Unknown (or forward-local) symbol: emit a placeholder and defer
	// resolution to finish().
	off, err := a.emitWord(0)
	if err != nil {
		return err
	}
	a.fixups = append(a.fixups, branchFixup{
		kind: a.sections.Active(), offset: off, instAddr: off, target: name,
		op: op, cond: cond, span: tok.Span,
	})
	return nil
}

func (a *Assembler) encodeMiscInst(op encoding.Opcode, mnemonic string, groups [][]token.Token) error {
	inst := encoding.Instruction{Op: op}
	switch mnemonic {
	case "HLT", "NOP":
		// no operands.
	case "SVC":
		if len(groups) != 1 {
			return fmt.Errorf("SVC requires one immediate operand")
		}
		v, err := a.evalExpr(stripHash(groups[0]))
		if err != nil {
			return err
		}
		inst.Imm = v
	case "BX", "BLX":
		if len(groups) != 1 || len(groups[0]) != 1 {
			return fmt.Errorf("%s requires a single register operand", mnemonic)
		}
		rm, err := registerNumber(groups[0][0])
		if err != nil {
			return err
		}
		inst.Imm = rm
	case "PUSH", "POP":
		mask, err := registerListMask(groups)
		if err != nil {
			return err
		}
		inst.Imm = mask
	default:
		return fmt.Errorf("unsupported misc instruction %q", mnemonic)
	}
	word, err := encoding.Encode(inst)
	if err != nil {
		return err
	}
	_, err = a.emitWord(word)
	return err
}

// registerListMask packs a '{r0, r1, ...}' register list into a
// bitmask. Only registers numbered 0-25 can be represented: the Misc
// format's 26-bit immediate field has no room for sp/xzr/fp/lr
// (numbers 29-31), so PUSH/POP cannot name them.
func registerListMask(groups [][]token.Token) (uint32, error) {
	if len(groups) != 1 {
		return 0, fmt.Errorf("expected a single '{...}' register list")
	}
	list := groups[0]
	if len(list) < 2 || list[0].Kind != token.LBrace || list[len(list)-1].Kind != token.RBrace {
		return 0, fmt.Errorf("expected a '{...}' register list")
	}
	var mask uint32
	for _, t := range list[1 : len(list)-1] {
		if t.Kind == token.Comma {
			continue
		}
		n, err := registerNumber(t)
		if err != nil {
			return 0, err
		}
		if n > 25 {
			return 0, fmt.Errorf("register %s cannot appear in a PUSH/POP list", t.Lexeme)
		}
		mask |= 1 << n
	}
	return mask, nil
}

// finish resolves deferred branch fixups and records the final status,
// called once the token stream is exhausted or a '.stop' is hit.
func (a *Assembler) finish() {
	for _, fx := range a.fixups {
		sym, ok := a.symbols.Lookup(fx.target)
		if !ok || !sym.Defined {
			a.errorf(fx.span, "undefined branch target %q (declare '.extern' before use if external)", fx.target)
			continue
		}
		inst := encoding.Instruction{Op: fx.op, Cond: fx.cond, Imm: sym.Value - fx.instAddr}
		word, err := encoding.Encode(inst)
		if err != nil {
			a.errorf(fx.span, "%s", err)
			continue
		}
		a.patchWord(fx.kind, fx.offset, word)
	}
	if a.status == StatusOK && len(a.diags) == 0 {
		a.status = StatusOK
	}
}

func (a *Assembler) patchWord(k section.Kind, offset uint32, word uint32) {
	sec := a.sections.Section(k)
	bs := sec.Bytes
	if int(offset)+4 > len(bs) {
		return
	}
	bs[offset] = byte(word)
	bs[offset+1] = byte(word >> 8)
	bs[offset+2] = byte(word >> 16)
	bs[offset+3] = byte(word >> 24)
}
