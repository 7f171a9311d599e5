package preprocess

import (
	"testing"

	"github.com/lookbusy1344/emu32asm/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexSrc(src string) []token.Token {
	return stripTrivia(token.NewLexer(src, "t.s").TokenizeAll())
}

func lexemes(toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind == token.Newline || t.Kind == token.EOF {
			continue
		}
		out = append(out, t.Lexeme)
	}
	return out
}

func TestDefineExpandsAtIdentifierReference(t *testing.T) {
	p := New("", nil)
	out, err := p.Process(lexSrc("#define LEN 4\nmov x0, LEN\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MOV", "X0", ",", "4"}, lexemes(out))
}

func TestUndefRemovesBinding(t *testing.T) {
	p := New("", nil)
	out, err := p.Process(lexSrc("#define LEN 4\n#undef LEN\nLEN\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"LEN"}, lexemes(out))
}

func TestRedefinitionWarns(t *testing.T) {
	p := New("", nil)
	_, err := p.Process(lexSrc("#define LEN 4\n#define LEN 8\n"))
	require.NoError(t, err)
	assert.Len(t, p.Warnings(), 1)
}

func TestIfdefIncludesOnlyWhenDefined(t *testing.T) {
	p := New("", nil)
	p.Define("FOO", "")
	out, err := p.Process(lexSrc("#ifdef FOO\nalpha\n#else\nbeta\n#endif\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, lexemes(out))
}

func TestIfndefElseBranch(t *testing.T) {
	p := New("", nil)
	out, err := p.Process(lexSrc("#ifndef FOO\nbeta\n#else\nalpha\n#endif\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, lexemes(out))
}

func TestIfequNumericComparison(t *testing.T) {
	p := New("", nil)
	out, err := p.Process(lexSrc("#ifequ 1 1\nyes\n#endif\n#ifnequ 1 2\nno\n#endif\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"yes", "no"}, lexemes(out))
}

func TestIflessIfmoreNumericComparison(t *testing.T) {
	p := New("", nil)
	out, err := p.Process(lexSrc("#ifless 1 2\na\n#endif\n#ifmore 2 1\nb\n#endif\n#ifless 2 1\nc\n#endif\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "B"}, lexemes(out)) // 'b' lexes as the B mnemonic
}

func TestUnmatchedEndifIsError(t *testing.T) {
	p := New("", nil)
	_, err := p.Process(lexSrc("#endif\n"))
	assert.Error(t, err)
}

func TestUnterminatedConditionalIsError(t *testing.T) {
	p := New("", nil)
	_, err := p.Process(lexSrc("#ifdef FOO\nx\n"))
	assert.Error(t, err)
}

func TestNestedConditionals(t *testing.T) {
	p := New("", nil)
	p.Define("OUTER", "")
	out, err := p.Process(lexSrc("#ifdef OUTER\n#ifdef INNER\na\n#else\nb\n#endif\n#endif\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, lexemes(out)) // 'b' lexes as the B mnemonic
}

func TestMacroDefineAndInvoke(t *testing.T) {
	p := New("", nil)
	src := "#macro add2(a, c)\nadd x0, a, c\n#macend\n#invoke add2(x1, x2)\n"
	out, err := p.Process(lexSrc(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"ADD", "X0", ",", "X1", ",", "X2"}, lexemes(out))
}

func TestMacroWithMacretProducesEqu(t *testing.T) {
	p := New("", nil)
	src := "#macro double(n) :int\n#macret n * 2\n#macend\n#invoke double(21) RESULT\n"
	out, err := p.Process(lexSrc(src))
	require.NoError(t, err)
	assert.Equal(t, []string{".equ", "RESULT", ",", "21", "*", "2"}, lexemes(out))
}

func TestNestedMacroIsError(t *testing.T) {
	p := New("", nil)
	src := "#macro outer(a)\n#macro inner(b)\n#macend\n#macend\n"
	_, err := p.Process(lexSrc(src))
	assert.Error(t, err)
}

func TestInvokeWrongArgCountIsError(t *testing.T) {
	p := New("", nil)
	src := "#macro one(a)\nmov x0, a\n#macend\n#invoke one(x1, x2)\n"
	_, err := p.Process(lexSrc(src))
	assert.Error(t, err)
}

func TestIncludeSplicesFileContentsViaFileReader(t *testing.T) {
	p := New("/proj", nil)
	p.SetFileReader(func(path string) (string, error) {
		return "included_label:\n", nil
	})
	out, err := p.Process(lexSrc(`#include "lib.s"` + "\nmov x0, x0\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"included_label", ":", "MOV", "X0", ",", "X0"}, lexemes(out))
}

func TestIncludeCircularDetection(t *testing.T) {
	p := New("/proj", nil)
	p.SetFileReader(func(path string) (string, error) {
		return `#include "self.s"` + "\n", nil
	})
	_, err := p.ProcessFile("self.s")
	assert.Error(t, err)
}
