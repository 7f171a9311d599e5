package asm

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/directive"
	"github.com/lookbusy1344/emu32asm/section"
	"github.com/lookbusy1344/emu32asm/token"
)

// runDirective implements the §4.7 Directive Handlers dispatch: each
// dot-directive's operand tokens are evaluated here (the Handler
// itself is operand-agnostic) before being handed to directive.Handler.
func (a *Assembler) runDirective(tok token.Token, line []token.Token) error {
	name := tok.Lexeme
	groups := splitOperands(line)
	if len(groups) == 1 && len(groups[0]) == 0 {
		groups = nil
	}

	switch name {
	case ".global":
		return a.nameOperandDirective(groups, a.handler.Global)
	case ".extern":
		return a.nameOperandDirective(groups, a.handler.Extern)

	case ".equ":
		if len(groups) != 2 {
			return fmt.Errorf("'.equ' requires NAME, EXPR")
		}
		if len(groups[0]) != 1 || groups[0][0].Kind != token.Identifier {
			return fmt.Errorf("'.equ' requires a plain symbol name")
		}
		v, err := a.evalExpr(groups[1])
		if err != nil {
			return err
		}
		return a.handler.Equ(a.qualify(groups[0][0].Lexeme), v, tok.Span)

	case ".org":
		v, err := a.singleExpr(groups, name)
		if err != nil {
			return err
		}
		return a.handler.Org(v)

	case ".advance":
		v, err := a.singleExpr(groups, name)
		if err != nil {
			return err
		}
		return a.handler.Advance(v)

	case ".align":
		v, err := a.singleExpr(groups, name)
		if err != nil {
			return err
		}
		return a.handler.Align(v)

	case ".scope":
		a.scopeStack = append(a.scopeStack, tok.ID)
		a.handler.Scope(tok)
		return nil

	case ".scend":
		if len(a.scopeStack) == 0 {
			return fmt.Errorf("'.scend' with no matching '.scope'")
		}
		a.scopeStack = a.scopeStack[:len(a.scopeStack)-1]
		return a.handler.ScEnd()

	case ".text":
		a.handler.SwitchSection(section.Text)
		return nil
	case ".data":
		a.handler.SwitchSection(section.Data)
		return nil
	case ".bss":
		a.handler.SwitchSection(section.BSS)
		return nil

	case ".endian":
		if len(groups) != 1 || len(groups[0]) != 1 || groups[0][0].Kind != token.Identifier {
			return fmt.Errorf("'.endian' requires 'big' or 'little'")
		}
		switch groups[0][0].Lexeme {
		case "big":
			a.handler.SetEndian(directive.Big)
		case "little":
			a.handler.SetEndian(directive.Little)
		default:
			return fmt.Errorf("'.endian' argument must be 'big' or 'little', got %q", groups[0][0].Lexeme)
		}
		return nil

	case ".db", ".dw", ".dd":
		values, err := a.evalExprList(groups)
		if err != nil {
			return err
		}
		switch name {
		case ".db":
			return a.handler.DB(values)
		case ".dw":
			return a.handler.DW(values)
		default:
			return a.handler.DD(values)
		}

	case ".ascii", ".asciz":
		if len(groups) != 1 || len(groups[0]) != 1 || groups[0][0].Kind != token.LiteralString {
			return fmt.Errorf("'%s' requires a single string literal", name)
		}
		if name == ".ascii" {
			return a.handler.Ascii(groups[0][0].Lexeme)
		}
		return a.handler.Asciz(groups[0][0].Lexeme)

	case ".fill":
		if len(groups) != 3 {
			return fmt.Errorf("'.fill' requires N, V, S")
		}
		vals, err := a.evalExprList(groups)
		if err != nil {
			return err
		}
		return a.handler.Fill(int(vals[0]), vals[1], int(vals[2]))

	case ".stop":
		a.handler.Stop()
		return nil

	case ".section":
		return a.handler.Section()

	default:
		return fmt.Errorf("unrecognized directive %q", name)
	}
}

func (a *Assembler) nameOperandDirective(groups [][]token.Token, apply func(string) error) error {
	if len(groups) != 1 || len(groups[0]) != 1 || groups[0][0].Kind != token.Identifier {
		return fmt.Errorf("expected a single symbol name")
	}
	return apply(a.qualify(groups[0][0].Lexeme))
}

func (a *Assembler) singleExpr(groups [][]token.Token, directiveName string) (uint32, error) {
	if len(groups) != 1 {
		return 0, fmt.Errorf("'%s' requires exactly one operand", directiveName)
	}
	return a.evalExpr(groups[0])
}
