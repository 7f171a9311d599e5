package symtab

import (
	"testing"

	"github.com/lookbusy1344/emu32asm/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringTableInterningIsIdempotent(t *testing.T) {
	st := NewStringTable()
	a := st.Intern("main")
	b := st.Intern("main")
	c := st.Intern("printf")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "main", st.String(a))
}

func TestDefineThenRedefineIsError(t *testing.T) {
	tab := NewTable(NewStringTable())
	require.NoError(t, tab.Define("x", 4, GLOBAL, 0, token.Span{}))
	err := tab.Define("x", 8, GLOBAL, 1, token.Span{})
	assert.Error(t, err)
}

func TestReferenceCreatesUndefinedEntry(t *testing.T) {
	tab := NewTable(NewStringTable())
	sym := tab.Reference("printf", token.Span{Line: 3})
	assert.False(t, sym.Defined)
	assert.Equal(t, Undefined, sym.SectionIdx)
	assert.Len(t, tab.UndefinedNames(), 1)
}

func TestBindingUpgrades(t *testing.T) {
	tab := NewTable(NewStringTable())
	require.NoError(t, tab.Define("s", 0, WEAK, Undefined, token.Span{}))
	require.NoError(t, tab.UpgradeBinding("s", LOCAL))
	require.NoError(t, tab.UpgradeBinding("s", GLOBAL))
	assert.Error(t, tab.UpgradeBinding("s", WEAK))
}

func TestDeclareBindingThenLabelDefinitionKeepsGlobal(t *testing.T) {
	// .global main ; ... ; main: (§8 scenario 5)
	tab := NewTable(NewStringTable())
	require.NoError(t, tab.DeclareBinding("main", GLOBAL))
	sym, ok := tab.Lookup("main")
	require.True(t, ok)
	assert.False(t, sym.Defined)
	assert.Equal(t, Undefined, sym.SectionIdx)

	require.NoError(t, tab.Define("main", 0, LOCAL, 0, token.Span{}))
	sym, _ = tab.Lookup("main")
	assert.Equal(t, GLOBAL, sym.Binding)
	assert.True(t, sym.Defined)
}

func TestDeclareBindingExternStaysWeakAndUndefined(t *testing.T) {
	tab := NewTable(NewStringTable())
	require.NoError(t, tab.DeclareBinding("printf", WEAK))
	sym, ok := tab.Lookup("printf")
	require.True(t, ok)
	assert.Equal(t, WEAK, sym.Binding)
	assert.False(t, sym.Defined)
	assert.Equal(t, Undefined, sym.SectionIdx)
}

func TestDeclareBindingAfterForwardReferenceIsAllowed(t *testing.T) {
	tab := NewTable(NewStringTable())
	tab.Reference("printf", token.Span{})
	require.NoError(t, tab.DeclareBinding("printf", WEAK))
	sym, _ := tab.Lookup("printf")
	assert.Equal(t, WEAK, sym.Binding)
}

func TestDefineResolvesPriorForwardReference(t *testing.T) {
	tab := NewTable(NewStringTable())
	ref := tab.Reference("loop", token.Span{})
	assert.False(t, ref.Defined)
	require.NoError(t, tab.Define("loop", 0x100, LOCAL, 0, token.Span{}))
	sym, ok := tab.Lookup("loop")
	require.True(t, ok)
	assert.True(t, sym.Defined)
	assert.Equal(t, uint32(0x100), sym.Value)
}
