// Package preprocess implements the §4.2 Preprocessor: a token-stream
// transformer that resolves #include/#define/#undef/#macro/#invoke
// and the #if*/#else*/#endif conditional family before the assembler
// ever sees a token. Grounded on parser/preprocessor.go's include-
// stack/conditional-stack shape and parser/macros.go's macro table,
// both ported from line-string processing to AST-level token
// substitution per §9's explicit guidance ("implement as AST-level
// substitution over a vector of tokens, not via string re-lexing, to
// preserve spans").
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lookbusy1344/emu32asm/token"
)

// Error is a preprocessor-stage error carrying the offending span.
type Error struct {
	Span    token.Span
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Span, e.Message) }

// FileReader abstracts include-file resolution so tests can run
// without touching the filesystem.
type FileReader func(path string) (string, error)

func osReadFile(path string) (string, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- user-provided include file path
	return string(b), err
}

// Preprocessor holds the state threaded through one translation
// unit's expansion: the define/macro environments (a stack of frames
// per §9's "macro environment is a stack of frames"), the include
// stack for cycle detection, and the include search path.
type Preprocessor struct {
	defines      []map[string][]token.Token
	macros       map[string]*Macro
	includeStack []string
	includePaths []string
	baseDir      string
	readFile     FileReader
	warnings     []string
	invokeDepth  int
}

// New creates a Preprocessor rooted at baseDir (used to resolve
// relative #include paths), searching includePaths for angle-bracket
// includes.
func New(baseDir string, includePaths []string) *Preprocessor {
	if baseDir == "" {
		baseDir = "."
	}
	return &Preprocessor{
		defines:      []map[string][]token.Token{{}},
		macros:       make(map[string]*Macro),
		includePaths: includePaths,
		baseDir:      baseDir,
		readFile:     osReadFile,
	}
}

// SetFileReader overrides how #include resolves file contents; used
// in tests to avoid touching the real filesystem.
func (p *Preprocessor) SetFileReader(r FileReader) { p.readFile = r }

// Define pre-binds NAME (e.g. from a `-D NAME[=VALUE]` CLI flag) to
// value in the outermost frame.
func (p *Preprocessor) Define(name, value string) {
	var toks []token.Token
	if value != "" {
		toks = token.NewLexer(value, "<command-line>").TokenizeAll()
		toks = stripTrivia(toks)
	}
	p.defines[0][name] = toks
}

// Warnings returns accumulated non-fatal diagnostics (e.g. #define
// redefinition).
func (p *Preprocessor) Warnings() []string { return p.warnings }

func (p *Preprocessor) warnf(span token.Span, format string, args ...interface{}) {
	p.warnings = append(p.warnings, fmt.Sprintf("%s: %s", span, fmt.Sprintf(format, args...)))
}

func (p *Preprocessor) lookupDefine(name string) ([]token.Token, bool) {
	for i := len(p.defines) - 1; i >= 0; i-- {
		if toks, ok := p.defines[i][name]; ok {
			return toks, true
		}
	}
	return nil, false
}

func (p *Preprocessor) isDefined(name string) bool {
	_, ok := p.lookupDefine(name)
	return ok
}

// stripTrivia drops Comment/BlockComment tokens; Newlines are kept as
// the line-boundary signal the directive scanner relies on.
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

// ProcessFile reads and fully preprocesses filename (resolved against
// baseDir), returning the expanded token stream.
func (p *Preprocessor) ProcessFile(filename string) ([]token.Token, error) {
	return p.readAndProcess(filepath.Join(p.baseDir, filename), filename)
}

// condFrame tracks one #if*/#else*/#endif nesting level.
type condFrame struct {
	// parentSkip is true if an enclosing frame is already skipping;
	// propagates downward regardless of this frame's own predicate.
	parentSkip bool
	// taken is true once some branch in this chain has been active,
	// so a later #else* must not reactivate.
	taken bool
	// active is whether the CURRENT branch of this frame is emitting.
	active bool
}

func (p *Preprocessor) skipping(stack []condFrame) bool {
	if len(stack) == 0 {
		return false
	}
	top := stack[len(stack)-1]
	return top.parentSkip || !top.active
}

// Process expands includes/macros/defines/conditionals over an
// already-lexed token stream (Comment/BlockComment already stripped),
// returning the resulting token stream for a single translation unit
// or include fragment.
func (p *Preprocessor) Process(toks []token.Token) ([]token.Token, error) {
	var out []token.Token
	var stack []condFrame
	var macroBuild *Macro // non-nil while between #macro and #macend

	i := 0
	for i < len(toks) {
		tok := toks[i]

		if macroBuild != nil {
			if tok.Kind == token.PPDirective && tok.Lexeme == "#macend" {
				p.macros[macroBuild.Name] = macroBuild
				macroBuild = nil
				i++
				continue
			}
			if tok.Kind == token.PPDirective && tok.Lexeme == "#macro" {
				return nil, &Error{Span: tok.Span, Message: "nested '#macro' is forbidden"}
			}
			macroBuild.Body = append(macroBuild.Body, tok)
			i++
			continue
		}

		if tok.Kind == token.PPDirective {
			consumed, emitted, newStack, err := p.directive(toks, i, stack)
			if err != nil {
				return nil, err
			}
			if tok.Lexeme == "#macro" {
				macroBuild = emitted[0].macro
				i += consumed
				continue
			}
			if !p.skipping(newStack) || isConditionalDirective(tok.Lexeme) {
				for _, e := range emitted {
					if e.toks != nil {
						out = append(out, e.toks...)
					}
				}
			}
			stack = newStack
			i += consumed
			continue
		}

		if p.skipping(stack) {
			i++
			continue
		}

		if tok.Kind == token.Identifier {
			if bound, ok := p.lookupDefine(tok.Lexeme); ok {
				out = append(out, bound...)
				i++
				continue
			}
		}
		out = append(out, tok)
		i++
	}

	if macroBuild != nil {
		return nil, &Error{Message: fmt.Sprintf("unterminated '#macro %s': missing '#macend'", macroBuild.Name)}
	}
	if len(stack) > 0 {
		return nil, &Error{Message: "unterminated conditional: missing '#endif'"}
	}
	return out, nil
}

func isConditionalDirective(lexeme string) bool {
	switch lexeme {
	case "#ifdef", "#ifndef", "#ifequ", "#ifnequ", "#ifless", "#ifmore",
		"#else", "#elsedef", "#elsendef", "#elseequ", "#elsenequ", "#elseless", "#elsemore",
		"#endif":
		return true
	default:
		return false
	}
}

// emission is either literal tokens to splice into the output, or (for
// #macro) a macro under construction to hand back to Process's loop.
type emission struct {
	toks  []token.Token
	macro *Macro
}

// restOfLine returns the tokens from toks[start:] up to (excluding) the
// next Newline/EOF, and the index just past that Newline.
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

// resolveInclude reads, lexes, and recursively preprocesses path,
// searching includePaths before falling back to baseDir. Quoted and
// angle-bracket includes both go through this same search; a quoted
// include is not looked up relative to the including file first.
func (p *Preprocessor) resolveInclude(path string) ([]token.Token, error) {
	if filepath.IsAbs(path) {
		return p.readAndProcess(path, path)
	}
	candidates := append(append([]string{}, p.includePaths...), p.baseDir)
	var lastErr error
	for _, dir := range candidates {
		full := filepath.Join(dir, path)
		if toks, err := p.readAndProcess(full, path); err == nil {
			return toks, nil
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}

func (p *Preprocessor) readAndProcess(absOrRelPath, displayName string) ([]token.Token, error) {
	absPath, err := filepath.Abs(absOrRelPath)
	if err != nil {
		return nil, err
	}
	for _, included := range p.includeStack {
		if included == absPath {
			return nil, fmt.Errorf("circular include detected: %s", absPath)
		}
	}
	content, err := p.readFile(absPath)
	if err != nil {
		return nil, err
	}
	p.includeStack = append(p.includeStack, absPath)
	defer func() { p.includeStack = p.includeStack[:len(p.includeStack)-1] }()

	toks := stripTrivia(token.NewLexer(content, displayName).TokenizeAll())
	return p.Process(toks)
}

func tokenText(t token.Token) string {
	if t.Lexeme != "" {
		return t.Lexeme
	}
	return t.Kind.String()
}
