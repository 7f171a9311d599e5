// Package asm implements the Assembler: the driver that walks a
// preprocessed token stream statement by statement, consulting the
// Section Builder, Symbol Table, Expression Evaluator, Instruction
// Encoder and Directive Handlers described in §3/§4 of the toolchain
// specification and emitting an object.Object. Grounded on loader.go's
// top-level directive/instruction dispatch loop (LoadProgramIntoVM),
// generalized from "write straight into VM memory" to "build section
// buffers plus a symbol/relocation table for a relocatable object."
package asm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/directive"
	"github.com/lookbusy1344/emu32asm/encoding"
	"github.com/lookbusy1344/emu32asm/eval"
	"github.com/lookbusy1344/emu32asm/object"
	"github.com/lookbusy1344/emu32asm/preprocess"
	"github.com/lookbusy1344/emu32asm/section"
	"github.com/lookbusy1344/emu32asm/symtab"
	"github.com/lookbusy1344/emu32asm/token"
)

// Status is the assembler's run-level outcome, per §3's state shape.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusError:
		return "ERROR"
	case StatusStopped:
		return "STOPPED"
	default:
		return "?"
	}
}

// Diagnostic is one error or warning surfaced during assembly, carrying
// the span of the offending token per §4.7's "diagnostic with the
// token span."
type Diagnostic struct {
	Span    token.Span
	Message string
	Warning bool
}

func (d Diagnostic) String() string {
	level := "error"
	if d.Warning {
		level = "warning"
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, level, d.Message)
}

// branchFixup is a deferred local-branch patch: the word was emitted
// optimistically as a 1-word PC-relative branch because its target
// symbol was neither yet defined nor declared WEAK/GLOBAL at the point
// of use (§9's Open Question resolution: "a branch operand's external-
// ness is decided by declaration order, since .global/.extern must
// precede any section per §4.7's precondition").
type branchFixup struct {
	kind     section.Kind
	offset   uint32
	instAddr uint32
	target   string
	op       encoding.Opcode
	cond     encoding.Condition
	span     token.Span
}

// Assembler holds the state of one translation unit's assembly run.
type Assembler struct {
	strings  *symtab.StringTable
	symbols  *symtab.Table
	sections *section.Builder
	handler  *directive.Handler

	scopeStack []int

	relocs  map[section.Kind][]object.Relocation
	fixups  []branchFixup
	diags   []Diagnostic
	status  Status
}

// New creates an Assembler with empty sections and tables.
func New() *Assembler {
	strs := symtab.NewStringTable()
	syms := symtab.NewTable(strs)
	sections := section.NewBuilder()
	return &Assembler{
		strings:  strs,
		symbols:  syms,
		sections: sections,
		handler:  directive.NewHandler(sections, syms),
		relocs:   make(map[section.Kind][]object.Relocation),
	}
}

// Diagnostics returns all diagnostics accumulated so far.
func (a *Assembler) Diagnostics() []Diagnostic { return a.diags }

// Status reports the worst outcome seen so far.
func (a *Assembler) Status() Status { return a.status }

func (a *Assembler) errorf(at token.Span, format string, args ...interface{}) {
	a.diags = append(a.diags, Diagnostic{Span: at, Message: fmt.Sprintf(format, args...)})
	if a.status < StatusError {
		a.status = StatusError
	}
}

func (a *Assembler) warnf(at token.Span, format string, args ...interface{}) {
	a.diags = append(a.diags, Diagnostic{Span: at, Message: fmt.Sprintf(format, args...), Warning: true})
	if a.status < StatusWarning {
		a.status = StatusWarning
	}
}

// AssembleSource runs the full pipeline (preprocess, then assemble)
// over src and returns the resulting object.
func AssembleSource(src, filename, baseDir string, includePaths []string) (*object.Object, *Assembler, error) {
	return AssembleSourceWithDefines(src, filename, baseDir, includePaths, nil)
}

// AssembleSourceWithDefines is AssembleSource plus a set of predefined
// macros (the `-D NAME[=VALUE]` CLI flag, §6.1), bound into the
// preprocessor's outermost frame before the first token is expanded.
func AssembleSourceWithDefines(src, filename, baseDir string, includePaths []string, defines map[string]string) (*object.Object, *Assembler, error) {
	toks := token.NewLexer(src, filename).TokenizeAll()
	pp := preprocess.New(baseDir, includePaths)
	for name, value := range defines {
		pp.Define(name, value)
	}
	expanded, err := pp.Process(stripTrivia(toks))
	if err != nil {
		return nil, nil, err
	}
	a := New()
	for _, w := range pp.Warnings() {
		a.diags = append(a.diags, Diagnostic{Message: w, Warning: true})
		if a.status < StatusWarning {
			a.status = StatusWarning
		}
	}
	a.Run(expanded)
	obj := a.Object()
	if a.status >= StatusError {
		return obj, a, fmt.Errorf("assembly failed with %d error(s)", countErrors(a.diags))
	}
	return obj, a, nil
}

func countErrors(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if !d.Warning {
			n++
		}
	}
	return n
}

func stripTrivia(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.Comment || t.Kind == token.BlockComment {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Run walks toks (already preprocessed) statement by statement until
// a '.stop' directive or end of stream.
func (a *Assembler) Run(toks []token.Token) {
	i := 0
	for i < len(toks) {
		if a.handler.Stopped() {
			a.finish()
			a.status = StatusStopped
			return
		}
		tok := toks[i]
		switch tok.Kind {
		case token.Newline, token.EOF:
			i++
			continue
		case token.Label:
			i = a.defineLabel(toks, i)
		case token.Directive:
			i = a.statement(toks, i, a.runDirective)
		case token.Instruction:
			i = a.statement(toks, i, a.runInstruction)
		case token.PPDirective:
			a.errorf(tok.Span, "preprocessor directive %q survived preprocessing", tok.Lexeme)
			i = a.skipLine(toks, i)
		default:
			a.errorf(tok.Span, "unexpected token %s at start of statement", tok)
			i = a.skipLine(toks, i)
		}
	}
	a.finish()
}

// statementFn processes the tokens of one statement (mnemonic/
// directive plus operands) and returns any error.
type statementFn func(mnemonic token.Token, operands []token.Token) error

// statement consumes toks[i] (a Directive or Instruction token) plus
// the rest of its line, dispatches to fn, and returns the index of the
// next statement.
func (a *Assembler) statement(toks []token.Token, i int, fn statementFn) int {
	head := toks[i]
	line, next := restOfLine(toks, i+1)
	if err := fn(head, line); err != nil {
		a.errorf(head.Span, "%s", err)
	}
	return next
}

// defineLabel handles a bare 'NAME:' token (Label kind, colon not yet
// consumed) at the start of a statement, then continues with whatever
// follows on the same line (e.g. "main: bl printf").
func (a *Assembler) defineLabel(toks []token.Token, i int) int {
	labelTok := toks[i]
	i++
	if i < len(toks) && toks[i].Kind == token.Colon {
		i++
	}
	name := a.qualify(labelTok.Lexeme)
	value := a.sections.Cursor()
	sec := sectionIdx(a.sections.Active())
	if err := a.symbols.Define(name, value, symtab.LOCAL, sec, labelTok.Span); err != nil {
		a.errorf(labelTok.Span, "%s", err)
	}
	return i
}

// qualify renames name per the scope-stack rule: a label defined while
// the stack is non-empty becomes "NAME::TOKEN_ID" of the innermost
// open '.scope'.
func (a *Assembler) qualify(name string) string {
	if len(a.scopeStack) == 0 {
		return name
	}
	return fmt.Sprintf("%s::%d", name, a.scopeStack[len(a.scopeStack)-1])
}

// resolveName looks up a possibly-scoped reference: inside an open
// scope the qualified form is tried first, falling back to the bare
// (outer/global) name.
func (a *Assembler) resolveName(name string) string {
	if len(a.scopeStack) == 0 {
		return name
	}
	qualified := a.qualify(name)
	if _, ok := a.symbols.Lookup(qualified); ok {
		return qualified
	}
	return name
}

func sectionIdx(k section.Kind) int16 { return int16(k) }

func (a *Assembler) skipLine(toks []token.Token, i int) int {
	_, next := restOfLine(toks, i+1)
	return next
}

// restOfLine returns toks[start:] up to (excluding) the next Newline/
// EOF, and the index just past it.
func restOfLine(toks []token.Token, start int) ([]token.Token, int) {
	i := start
	for i < len(toks) && toks[i].Kind != token.Newline && toks[i].Kind != token.EOF {
		i++
	}
	args := toks[start:i]
	if i < len(toks) && toks[i].Kind == token.Newline {
		i++
	}
	return args, i
}

// splitOperands splits line on top-level commas, respecting bracket/
// brace/paren nesting so "[Rn, #4]" stays one operand.
func splitOperands(line []token.Token) [][]token.Token {
	var out [][]token.Token
	var cur []token.Token
	depth := 0
	for _, t := range line {
		switch t.Kind {
		case token.LBracket, token.LBrace, token.LParen:
			depth++
		case token.RBracket, token.RBrace, token.RParen:
			depth--
		}
		if t.Kind == token.Comma && depth == 0 {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 || len(out) > 0 {
		out = append(out, cur)
	}
	return out
}

// resolver adapts the Assembler's symbol table to eval.Resolver,
// honoring the scope-stack qualification rule.
func (a *Assembler) resolver() eval.Resolver {
	return eval.ResolverFunc(func(name string) (uint32, bool) {
		sym, ok := a.symbols.Lookup(a.resolveName(name))
		if !ok || !sym.Defined {
			return 0, false
		}
		return sym.Value, true
	})
}

func (a *Assembler) evalExpr(toks []token.Token) (uint32, error) {
	ev := eval.New(toks, a.resolver())
	return ev.Eval()
}

func (a *Assembler) evalExprList(groups [][]token.Token) ([]uint32, error) {
	out := make([]uint32, 0, len(groups))
	for _, g := range groups {
		v, err := a.evalExpr(g)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func registerNumber(tok token.Token) (uint32, error) {
	n, ok := token.LookupRegister(tok.Lexeme)
	if !ok {
		return 0, fmt.Errorf("expected register operand, got %s", tok)
	}
	return uint32(n), nil
}

func isImmediate(ops []token.Token) bool {
	return len(ops) > 0 && ops[0].Kind == token.Hash
}
