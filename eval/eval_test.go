package eval

import (
	"testing"

	"github.com/lookbusy1344/emu32asm/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(src string) []token.Token {
	toks := token.NewLexer(src, "t.s").TokenizeAll()
	var out []token.Token
	for _, tk := range toks {
		if tk.Kind == token.EOF {
			break
		}
		out = append(out, tk)
	}
	out = append(out, token.Token{Kind: token.EOF})
	return out
}

func TestEvalPrecedence(t *testing.T) {
	cases := map[string]uint32{
		"2 + 3 * 4":       14,
		"(2 + 3) * 4":     20,
		"1 << 2 + 1":      8, // additive binds tighter than shift band
		"10 - 2 - 3":      5,
		"1 == 1":          1,
		"1 != 1":          0,
		"5 & 3 | 8":       9,
		"~0":              0xFFFFFFFF,
		"-1":              0xFFFFFFFF,
		"!0":              1,
		"10 % 3":          1,
	}
	for src, want := range cases {
		v, err := New(lex(src), nil).Eval()
		require.NoError(t, err, src)
		assert.Equal(t, want, v, src)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := New(lex("1 / 0"), nil).Eval()
	assert.Error(t, err)
}

func TestEvalSymbolResolution(t *testing.T) {
	resolver := ResolverFunc(func(name string) (uint32, bool) {
		if name == "LEN" {
			return 4, true
		}
		return 0, false
	})
	v, err := New(lex("LEN * 2"), resolver).Eval()
	require.NoError(t, err)
	assert.Equal(t, uint32(8), v)
}

func TestEvalUndefinedSymbolErrorsByDefault(t *testing.T) {
	resolver := ResolverFunc(func(string) (uint32, bool) { return 0, false })
	_, err := New(lex("printf"), resolver).Eval()
	assert.Error(t, err)
}

func TestEvalUndefinedSymbolAllowedWhenRelocatable(t *testing.T) {
	resolver := ResolverFunc(func(string) (uint32, bool) { return 0, false })
	e := New(lex("printf"), resolver).AllowUndefined()
	v, err := e.Eval()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
	assert.Equal(t, "printf", e.UndefinedSymbol())
}

func TestEvalCharLiteral(t *testing.T) {
	v, err := New(lex(`'A'`), nil).Eval()
	require.NoError(t, err)
	assert.Equal(t, uint32('A'), v)
}
