package object

import (
	"bytes"
	"testing"

	"github.com/lookbusy1344/emu32asm/encoding"
	"github.com/lookbusy1344/emu32asm/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Object {
	return &Object{
		Sections: []Section{
			{Name: ".text", Type: SectionText, Flags: FlagExecutable, Size: 4, Bytes: []byte{0, 0, 0, 0}},
			{Name: ".bss", Type: SectionBSS, Flags: FlagWritable, Size: 16},
		},
		Symbols: []Symbol{
			{Name: "main", Value: 0, Binding: symtab.GLOBAL, SectionIdx: 0},
			{Name: "printf", Value: 0, Binding: symtab.WEAK, SectionIdx: symtab.Undefined},
		},
		Relocations: []Relocation{
			{SectionIdx: 0, Offset: 0, Symbol: "printf", Kind: encoding.RelocMovLo19},
		},
	}
}

func TestWriteStartsWithMagicAndVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	got := buf.Bytes()
	require.GreaterOrEqual(t, len(got), 6)
	assert.Equal(t, []byte("E32O"), got[0:4])
	assert.Equal(t, byte(1), got[4]) // version LE low byte
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	obj := sample()
	require.NoError(t, Write(&buf, obj))

	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Len(t, back.Sections, 2)
	assert.Equal(t, ".text", back.Sections[0].Name)
	assert.Equal(t, []byte{0, 0, 0, 0}, back.Sections[0].Bytes)
	assert.Equal(t, ".bss", back.Sections[1].Name)
	assert.Nil(t, back.Sections[1].Bytes)
	assert.Equal(t, uint32(16), back.Sections[1].Size)

	require.Len(t, back.Symbols, 2)
	assert.Equal(t, "main", back.Symbols[0].Name)
	assert.Equal(t, symtab.GLOBAL, back.Symbols[0].Binding)
	assert.Equal(t, "printf", back.Symbols[1].Name)
	assert.Equal(t, symtab.Undefined, back.Symbols[1].SectionIdx)

	require.Len(t, back.Relocations, 1)
	assert.Equal(t, "printf", back.Relocations[0].Symbol)
	assert.Equal(t, encoding.RelocMovLo19, back.Relocations[0].Kind)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("NOTAMAGICHDR000000000000000000000000000")))
	assert.Error(t, err)
}

func TestWriteUnknownRelocationSymbolErrors(t *testing.T) {
	obj := sample()
	obj.Relocations = []Relocation{{Symbol: "ghost", Kind: encoding.RelocOLo12}}
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, obj))
}
