package preprocess

import (
	"strconv"

	"github.com/lookbusy1344/emu32asm/token"
)

// directive dispatches the PPDirective token at toks[i], returning how
// many tokens it consumed, what (if anything) to splice into the
// output, and the conditional-frame stack as it stands afterward.
func (p *Preprocessor) directive(toks []token.Token, i int, stack []condFrame) (int, []emission, []condFrame, error) {
	tok := toks[i]
	line, next := restOfLine(toks, i+1)
	consumed := next - i

	switch tok.Lexeme {
	case "#ifdef", "#ifndef":
		if p.skipping(stack) {
			return consumed, nil, append(stack, condFrame{parentSkip: true}), nil
		}
		if len(line) == 0 {
			return 0, nil, stack, &Error{Span: tok.Span, Message: tok.Lexeme + " requires a symbol name"}
		}
		name := tokenText(line[0])
		want := tok.Lexeme == "#ifdef"
		active := p.isDefined(name) == want
		return consumed, nil, append(stack, condFrame{active: active, taken: active}), nil

	case "#ifequ", "#ifnequ", "#ifless", "#ifmore":
		if p.skipping(stack) {
			return consumed, nil, append(stack, condFrame{parentSkip: true}), nil
		}
		a, b, err := p.twoOperands(tok, line)
		if err != nil {
			return 0, nil, stack, err
		}
		active := evalComparison(tok.Lexeme[3:], a, b)
		return consumed, nil, append(stack, condFrame{active: active, taken: active}), nil

	case "#else", "#elsedef", "#elsendef", "#elseequ", "#elsenequ", "#elseless", "#elsemore":
		if len(stack) == 0 {
			return 0, nil, stack, &Error{Span: tok.Span, Message: tok.Lexeme + " without matching #if*"}
		}
		top := stack[len(stack)-1]
		if top.parentSkip {
			return consumed, nil, stack, nil
		}
		var active bool
		switch tok.Lexeme {
		case "#else":
			active = !top.taken
		case "#elsedef", "#elsendef":
			if len(line) == 0 {
				return 0, nil, stack, &Error{Span: tok.Span, Message: tok.Lexeme + " requires a symbol name"}
			}
			name := tokenText(line[0])
			want := tok.Lexeme == "#elsedef"
			active = !top.taken && p.isDefined(name) == want
		default:
			a, b, err := p.twoOperands(tok, line)
			if err != nil {
				return 0, nil, stack, err
			}
			active = !top.taken && evalComparison(tok.Lexeme[5:], a, b)
		}
		stack[len(stack)-1] = condFrame{parentSkip: top.parentSkip, taken: top.taken || active, active: active}
		return consumed, nil, stack, nil

	case "#endif":
		if len(stack) == 0 {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "#endif without matching #if*"}
		}
		return consumed, nil, stack[:len(stack)-1], nil

	case "#include":
		if p.skipping(stack) {
			return consumed, nil, stack, nil
		}
		path, err := includePath(line, tok.Span)
		if err != nil {
			return 0, nil, stack, err
		}
		included, err := p.resolveInclude(path)
		if err != nil {
			return 0, nil, stack, err
		}
		return consumed, []emission{{toks: included}}, stack, nil

	case "#define":
		if p.skipping(stack) {
			return consumed, nil, stack, nil
		}
		if len(line) == 0 || line[0].Kind != token.Identifier {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "#define requires a name"}
		}
		name := line[0].Lexeme
		if p.isDefined(name) {
			p.warnf(tok.Span, "redefinition of %q", name)
		}
		top := p.defines[len(p.defines)-1]
		top[name] = append([]token.Token{}, line[1:]...)
		return consumed, nil, stack, nil

	case "#undef":
		if p.skipping(stack) {
			return consumed, nil, stack, nil
		}
		if len(line) == 0 {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "#undef requires a name"}
		}
		name := line[0].Lexeme
		for _, frame := range p.defines {
			delete(frame, name)
		}
		return consumed, nil, stack, nil

	case "#macro":
		if p.skipping(stack) {
			// Swallow the whole macro body without defining it.
			j := next
			for j < len(toks) && !(toks[j].Kind == token.PPDirective && toks[j].Lexeme == "#macend") {
				j++
			}
			if j < len(toks) {
				j++
			}
			return j - i, nil, stack, nil
		}
		m, err := parseMacroHeader(line, tok.Span)
		if err != nil {
			return 0, nil, stack, err
		}
		if _, exists := p.macros[m.Name]; exists {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "macro \"" + m.Name + "\" already defined"}
		}
		return consumed, []emission{{macro: m}}, stack, nil

	case "#invoke":
		if p.skipping(stack) {
			return consumed, nil, stack, nil
		}
		name, args, out, err := parseInvokeHeader(line, tok.Span)
		if err != nil {
			return 0, nil, stack, err
		}
		m, ok := p.macros[name]
		if !ok {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "undefined macro: " + name}
		}
		if p.invokeDepth >= MaxMacroNestingDepth {
			return 0, nil, stack, &Error{Span: tok.Span, Message: "macro invocation nested too deeply (possible recursive '#invoke')"}
		}
		expanded, err := m.Expand(args, out, tok.Span)
		if err != nil {
			return 0, nil, stack, err
		}
		// A macro body can itself hold #define/#invoke/conditionals, so
		// the expansion is re-run through Process before splicing it in.
		p.invokeDepth++
		reprocessed, err := p.Process(expanded)
		p.invokeDepth--
		if err != nil {
			return 0, nil, stack, err
		}
		return consumed, []emission{{toks: reprocessed}}, stack, nil

	default:
		return 0, nil, stack, &Error{Span: tok.Span, Message: "unrecognized preprocessor directive: " + tok.Lexeme}
	}
}

func (p *Preprocessor) twoOperands(tok token.Token, line []token.Token) (string, string, error) {
	if len(line) < 2 {
		return "", "", &Error{Span: tok.Span, Message: tok.Lexeme + " requires two operands"}
	}
	a := tokenText(line[0])
	if bound, ok := p.lookupDefine(a); ok && len(bound) == 1 {
		a = tokenText(bound[0])
	}
	b := tokenText(line[1])
	if bound, ok := p.lookupDefine(b); ok && len(bound) == 1 {
		b = tokenText(bound[0])
	}
	return a, b, nil
}

func evalComparison(kind, a, b string) bool {
	switch kind {
	case "equ":
		return a == b
	case "nequ":
		return a != b
	case "less", "more":
		na, aOK := strconv.ParseInt(a, 0, 64)
		nb, bOK := strconv.ParseInt(b, 0, 64)
		if aOK != nil || bOK != nil {
			if kind == "less" {
				return a < b
			}
			return a > b
		}
		if kind == "less" {
			return na < nb
		}
		return na > nb
	default:
		return false
	}
}

func includePath(line []token.Token, at token.Span) (string, error) {
	if len(line) == 0 {
		return "", &Error{Span: at, Message: "#include requires a path"}
	}
	if line[0].Kind == token.LiteralString {
		return line[0].Lexeme, nil
	}
	if line[0].Kind == token.Lt {
		var sb []byte
		for _, t := range line[1:] {
			if t.Kind == token.Gt {
				return string(sb), nil
			}
			sb = append(sb, tokenText(t)...)
		}
		return "", &Error{Span: at, Message: "unterminated '#include <...>'"}
	}
	return "", &Error{Span: at, Message: "invalid #include path"}
}
