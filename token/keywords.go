package token

import (
	"strconv"
	"strings"
)

// Registers: x0-x29, sp, xzr, fp (alias of x29), lr (alias of x30).
// Per §9's Open Question resolution, fp and lr ARE tokenized here, unlike
// the teacher source which left them out.
//
// Register numbering: x0-x29 map to 0-29, x30 (only reachable via the lr
// alias — the spec's register list never names "x30" directly) is 30.
// sp and xzr both encode as register field value 31; which one a given
// field value 31 means is determined by instruction context (the same
// trick real AArch64 uses), not by the register name alone.
var registerNumbers = map[string]int{
	"SP": 31, "XZR": 31, "FP": 29, "LR": 30,
}

func init() {
	for i := 0; i <= 29; i++ {
		registerNumbers["X"+strconv.Itoa(i)] = i
	}
}

// LookupRegister returns the register number for a (case-insensitive)
// register name and whether it is a recognized register keyword.
func LookupRegister(name string) (int, bool) {
	n, ok := registerNumbers[strings.ToUpper(name)]
	return n, ok
}

// IsSP / IsXZR disambiguate the two names that share register field 31.
func IsSP(name string) bool  { return strings.EqualFold(name, "SP") }
func IsXZR(name string) bool { return strings.EqualFold(name, "XZR") }

// conditions: the 16 branch condition codes.
var conditions = map[string]bool{
	"EQ": true, "NE": true, "CS": true, "HS": true, "CC": true, "LO": true,
	"MI": true, "PL": true, "VS": true, "VC": true, "HI": true, "LS": true,
	"GE": true, "LT": true, "GT": true, "LE": true, "AL": true, "NV": true,
}

// IsCondition reports whether name is one of the 16 branch conditions.
func IsCondition(name string) bool {
	return conditions[strings.ToUpper(name)]
}

// directives: the 37 assembler directives recognized by §4.7/§4.2's
// directive tables (preprocessor directives use the separate '#' sigil
// and are matched by the preprocess package, not here).
var directives = map[string]bool{
	".global": true, ".extern": true, ".equ": true, ".org": true,
	".scope": true, ".scend": true, ".db": true, ".dw": true, ".dd": true,
	".ascii": true, ".asciz": true, ".string": true, ".fill": true,
	".align": true, ".advance": true, ".text": true, ".data": true,
	".bss": true, ".stop": true, ".section": true, ".endian": true,
	".space": true, ".skip": true, ".byte": true, ".word": true,
	".half": true, ".checkpc": true, ".set": true, ".local": true,
	".weak": true, ".type": true, ".size": true, ".comm": true,
	".zero": true, ".float": true, ".double": true, ".incbin": true,
}

// IsDirective reports whether lexeme (including the leading '.') is one
// of the closed set of directive keywords.
func IsDirective(lexeme string) bool {
	return directives[strings.ToLower(lexeme)]
}

// mnemonics: the EMU32 instruction set. Grouped by the format their
// encoding routes to (§4.6); see package encoding for the encoder.
var mnemonics = map[string]bool{
	// Format O: data-processing / ALU.
	"MOV": true, "MVN": true, "ADD": true, "ADC": true, "SUB": true,
	"SBC": true, "RSB": true, "RSC": true, "AND": true, "ORR": true,
	"EOR": true, "BIC": true, "CMP": true, "CMN": true, "TST": true,
	"TEQ": true, "LSL": true, "LSR": true, "ASR": true, "ROR": true,
	"MUL": true, "MLA": true,
	// Format M: load/store.
	"LDR": true, "STR": true, "LDRB": true, "STRB": true, "LDRH": true,
	"STRH": true, "LDRSB": true, "LDRSH": true,
	// Format B1/B2: branch / branch-link, with condition embedded in
	// the mnemonic (e.g. BEQ, BLNE) as well as unconditional B/BL.
	"B": true, "BL": true, "BX": true, "BLX": true,
	"BEQ": true, "BNE": true, "BCS": true, "BHS": true, "BCC": true,
	"BLO": true, "BMI": true, "BPL": true, "BVS": true, "BVC": true,
	"BHI": true, "BLS": true, "BGE": true, "BLT": true, "BGT": true,
	"BLE": true,
	// Format M1: move-wide immediate + relocation.
	"ADRP": true, "MOVW": true, "MOVK": true, "MOVN": true, "MOVZ": true,
	// Misc.
	"NOP": true, "HLT": true, "SVC": true, "PUSH": true, "POP": true,
}

// IsMnemonic reports whether name (case-insensitively) is one of the
// closed set of instruction mnemonics.
func IsMnemonic(name string) bool {
	return mnemonics[strings.ToUpper(name)]
}
