package preprocess

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/token"
)

// Macro is a parameterized token-body expansion, grounded on
// parser/macros.go's Macro/MacroTable shape. Unlike the teacher's
// backslash-prefixed string substitution (`\param`), expansion here
// operates at the token level: a body Identifier token whose lexeme
// matches a parameter name is replaced wholesale by that argument's
// token slice, the natural analogue of textual substitution once
// macros are represented as token vectors instead of strings.
type Macro struct {
	Name       string
	Params     []string
	ReturnType string // "" if the macro declares no #macret value.
	Body       []token.Token
	DefSpan    token.Span
}

// MaxMacroNestingDepth bounds #invoke recursion, mirroring the
// teacher's MacroExpander depth guard.
const MaxMacroNestingDepth = 32

// parseMacroHeader parses the tokens after "#macro" on its line:
// NAME ( PARAM, PARAM, ... ) [ : TYPE ]
func parseMacroHeader(line []token.Token, at token.Span) (*Macro, error) {
	if len(line) == 0 || line[0].Kind != token.Identifier {
		return nil, &Error{Span: at, Message: "'#macro' requires a name"}
	}
	m := &Macro{Name: line[0].Lexeme, DefSpan: at}
	rest := line[1:]
	if len(rest) == 0 || rest[0].Kind != token.LParen {
		return nil, &Error{Span: at, Message: fmt.Sprintf("'#macro %s' requires a parameter list", m.Name)}
	}
	rest = rest[1:]
	for len(rest) > 0 && rest[0].Kind != token.RParen {
		if rest[0].Kind != token.Identifier {
			return nil, &Error{Span: at, Message: fmt.Sprintf("invalid parameter in '#macro %s'", m.Name)}
		}
		m.Params = append(m.Params, rest[0].Lexeme)
		rest = rest[1:]
		if len(rest) > 0 && rest[0].Kind == token.Comma {
			rest = rest[1:]
		}
	}
	if len(rest) == 0 || rest[0].Kind != token.RParen {
		return nil, &Error{Span: at, Message: fmt.Sprintf("unterminated parameter list in '#macro %s'", m.Name)}
	}
	rest = rest[1:]
	if len(rest) > 0 && rest[0].Kind == token.Colon {
		if len(rest) < 2 || rest[1].Kind != token.Identifier {
			return nil, &Error{Span: at, Message: fmt.Sprintf("'#macro %s' has ':' with no return type", m.Name)}
		}
		m.ReturnType = rest[1].Lexeme
	}
	return m, nil
}

// parseInvokeHeader parses the tokens after "#invoke" on its line:
// NAME ( ARG, ARG, ... ) [ OUT ]
func parseInvokeHeader(line []token.Token, at token.Span) (name string, args [][]token.Token, out string, err error) {
	if len(line) == 0 || line[0].Kind != token.Identifier {
		return "", nil, "", &Error{Span: at, Message: "'#invoke' requires a macro name"}
	}
	name = line[0].Lexeme
	rest := line[1:]
	if len(rest) == 0 || rest[0].Kind != token.LParen {
		return "", nil, "", &Error{Span: at, Message: fmt.Sprintf("'#invoke %s' requires an argument list", name)}
	}
	rest = rest[1:]
	var cur []token.Token
	depth := 0
	for len(rest) > 0 {
		t := rest[0]
		if t.Kind == token.LParen {
			depth++
		}
		if t.Kind == token.RParen {
			if depth == 0 {
				break
			}
			depth--
		}
		if t.Kind == token.Comma && depth == 0 {
			args = append(args, cur)
			cur = nil
			rest = rest[1:]
			continue
		}
		cur = append(cur, t)
		rest = rest[1:]
	}
	if len(cur) > 0 || len(args) > 0 {
		args = append(args, cur)
	}
	if len(rest) == 0 || rest[0].Kind != token.RParen {
		return "", nil, "", &Error{Span: at, Message: fmt.Sprintf("unterminated argument list in '#invoke %s'", name)}
	}
	rest = rest[1:]
	if len(rest) > 0 && rest[0].Kind == token.Identifier {
		out = rest[0].Lexeme
	}
	return name, args, out, nil
}

// Expand substitutes args for m's parameters through m's body,
// converting a `#macret EXPR` marker into a synthesized
// `.equ OUT, EXPR` (post-substitution) when outName is non-empty.
func (m *Macro) Expand(args [][]token.Token, outName string, at token.Span) ([]token.Token, error) {
	if len(args) != len(m.Params) {
		return nil, &Error{Span: at, Message: fmt.Sprintf("macro %q expects %d arguments, got %d", m.Name, len(m.Params), len(args))}
	}
	bind := make(map[string][]token.Token, len(m.Params))
	for i, p := range m.Params {
		bind[p] = args[i]
	}

	var out []token.Token
	i := 0
	for i < len(m.Body) {
		t := m.Body[i]
		if t.Kind == token.PPDirective && t.Lexeme == "#macret" {
			exprLine, next := restOfLine(m.Body, i+1)
			i = next
			if outName == "" {
				continue
			}
			substituted := substituteParams(exprLine, bind)
			out = append(out,
				token.Token{Kind: token.Directive, Lexeme: ".equ", Span: t.Span},
				token.Token{Kind: token.Identifier, Lexeme: outName, Span: t.Span},
				token.Token{Kind: token.Comma, Lexeme: ",", Span: t.Span},
			)
			out = append(out, substituted...)
			out = append(out, token.Token{Kind: token.Newline, Lexeme: "\n", Span: t.Span})
			continue
		}
		if t.Kind == token.Identifier {
			if bound, ok := bind[t.Lexeme]; ok {
				out = append(out, bound...)
				i++
				continue
			}
		}
		out = append(out, t)
		i++
	}
	return out, nil
}

func substituteParams(toks []token.Token, bind map[string][]token.Token) []token.Token {
	var out []token.Token
	for _, t := range toks {
		if t.Kind == token.Identifier {
			if bound, ok := bind[t.Lexeme]; ok {
				out = append(out, bound...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
