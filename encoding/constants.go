// Package encoding implements the §4.6 Instruction Encoder: the sole
// public contract between the assembler and the emulator. Grounded on
// encoder/encoder.go's mnemonic-dispatch shape (encoder/data_processing.go,
// encoder/memory.go, encoder/branch.go for the per-class routines), with
// ARM's field layout replaced throughout by the EMU32 bit layout of §4.6.
package encoding

// Opcode is the 6-bit top-level instruction selector (bits 31..26).
type Opcode uint32

const (
	OpHLT Opcode = iota
	OpNOP
	OpMOV
	OpMVN
	OpAND
	OpORR
	OpADD // = 6, matching the worked example in §8 scenario 2.
	OpADC
	OpSUB
	OpSBC
	OpRSB
	OpRSC
	OpEOR
	OpBIC
	OpCMP
	OpCMN
	OpTST
	OpTEQ
	OpLSL
	OpLSR
	OpASR
	OpROR
	OpMUL
	OpMLA
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpB
	OpBL
	OpBX
	OpBLX
	OpADRP
	OpMOVW
	OpMOVK
	OpMOVN
	OpMOVZ
	OpSVC
	OpPUSH
	OpPOP
)

var mnemonicToOpcode = map[string]Opcode{
	"HLT": OpHLT, "NOP": OpNOP, "MOV": OpMOV, "MVN": OpMVN, "AND": OpAND,
	"ORR": OpORR, "ADD": OpADD, "ADC": OpADC, "SUB": OpSUB, "SBC": OpSBC,
	"RSB": OpRSB, "RSC": OpRSC, "EOR": OpEOR, "BIC": OpBIC, "CMP": OpCMP,
	"CMN": OpCMN, "TST": OpTST, "TEQ": OpTEQ, "LSL": OpLSL, "LSR": OpLSR,
	"ASR": OpASR, "ROR": OpROR, "MUL": OpMUL, "MLA": OpMLA, "LDR": OpLDR,
	"STR": OpSTR, "LDRB": OpLDRB, "STRB": OpSTRB, "LDRH": OpLDRH,
	"STRH": OpSTRH, "LDRSB": OpLDRSB, "LDRSH": OpLDRSH, "B": OpB, "BL": OpBL,
	"BX": OpBX, "BLX": OpBLX, "ADRP": OpADRP, "MOVW": OpMOVW, "MOVK": OpMOVK,
	"MOVN": OpMOVN, "MOVZ": OpMOVZ, "SVC": OpSVC, "PUSH": OpPUSH, "POP": OpPOP,
}

var opcodeToMnemonic = func() map[Opcode]string {
	m := make(map[Opcode]string, len(mnemonicToOpcode))
	for name, op := range mnemonicToOpcode {
		m[op] = name
	}
	return m
}()

// Format identifies which bit-field layout an opcode uses.
type Format int

const (
	FormatO Format = iota // ALU: reg/reg or reg/imm14
	FormatM               // load/store
	FormatB1              // branch
	FormatB2              // branch-link
	FormatM1              // move-wide immediate + relocation
	FormatMisc            // HLT/NOP/SVC/PUSH/POP/BX/BLX: no structured operand payload
)

// FormatOf returns the bit-field Format op's encoding belongs to,
// letting external consumers of the §6.2 contract (vm.Executor) route
// a decoded Instruction without duplicating this table.
func FormatOf(op Opcode) Format { return formatOf(op) }

func formatOf(op Opcode) Format {
	switch op {
	case OpLDR, OpSTR, OpLDRB, OpSTRB, OpLDRH, OpSTRH, OpLDRSB, OpLDRSH:
		return FormatM
	case OpB:
		return FormatB1
	case OpBL:
		return FormatB2
	case OpADRP, OpMOVW, OpMOVK, OpMOVN, OpMOVZ:
		return FormatM1
	case OpHLT, OpNOP, OpSVC, OpPUSH, OpPOP, OpBX, OpBLX:
		return FormatMisc
	default:
		return FormatO
	}
}

// Condition is a 4-bit branch condition code (§4.1: 16 conditions).
type Condition uint32

const (
	CondEQ Condition = iota
	CondNE
	CondCS
	CondCC
	CondMI
	CondPL
	CondVS
	CondVC
	CondHI
	CondLS
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
	CondNV
)

var conditionNames = map[string]Condition{
	"EQ": CondEQ, "NE": CondNE, "CS": CondCS, "HS": CondCS, "CC": CondCC,
	"LO": CondCC, "MI": CondMI, "PL": CondPL, "VS": CondVS, "VC": CondVC,
	"HI": CondHI, "LS": CondLS, "GE": CondGE, "LT": CondLT, "GT": CondGT,
	"LE": CondLE, "AL": CondAL, "NV": CondNV,
}

var conditionToName = func() map[Condition]string {
	m := make(map[Condition]string, len(conditionNames))
	// Prefer the canonical (non-alias) spelling.
	canonical := []string{"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC", "HI", "LS", "GE", "LT", "GT", "LE", "AL", "NV"}
	for _, name := range canonical {
		m[conditionNames[name]] = name
	}
	return m
}()

// ShiftType is the 2-bit shift-type field used by Format O register/
// register operands.
type ShiftType uint32

const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
)

// Addressing mode for Format M load/store.
type AddrMode uint32

const (
	ModeOffset AddrMode = iota
	ModePreIndexed
	ModePostIndexed
	ModeShiftedReg
)

// RelocKind is the closed relocation-kind set of §3's Relocation record.
type RelocKind int

const (
	RelocOLo12 RelocKind = iota
	RelocAdrpHi20
	RelocMovLo19
	RelocMovHi13
)

func (k RelocKind) String() string {
	switch k {
	case RelocOLo12:
		return "EMU32_O_LO12"
	case RelocAdrpHi20:
		return "EMU32_ADRP_HI20"
	case RelocMovLo19:
		return "EMU32_MOV_LO19"
	case RelocMovHi13:
		return "EMU32_MOV_HI13"
	default:
		return "UNKNOWN_RELOC"
	}
}

// Relocation is a deferred patch: at Offset within the emitting
// section, bits of Symbol's eventual address must be written per Kind.
type Relocation struct {
	Offset uint32
	Symbol string
	Kind   RelocKind
}

const signBit32 = uint32(1) << 31
