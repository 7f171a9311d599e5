// Package object implements the §4.8 E32O relocatable object format:
// the byte-for-byte binary contract between the assembler and any
// downstream linker/emulator. The teacher never produces a
// relocatable object — it assembles straight into VM memory — so
// this package has no direct teacher analogue; it is grounded instead
// on the binary-module-serialization convention used throughout
// tetratelabs-wazero (fixed little-endian header, offset/count
// tables, encoding/binary.Write) as the closest example-pack
// precedent for "emit a tagged binary container."
package object

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lookbusy1344/emu32asm/encoding"
	"github.com/lookbusy1344/emu32asm/symtab"
)

var magic = [4]byte{'E', '3', '2', 'O'}

const version uint16 = 1

// SectionType distinguishes section headers in SECTAB.
type SectionType uint8

const (
	SectionText SectionType = iota
	SectionData
	SectionBSS
)

// SectionFlag bits for a section header.
type SectionFlag uint8

const (
	FlagExecutable SectionFlag = 1 << iota
	FlagWritable
)

// Section is one SECTAB entry plus its payload bytes (empty for BSS).
type Section struct {
	Name  string
	Type  SectionType
	Flags SectionFlag
	Size  uint32
	Bytes []byte
}

// Symbol is one SYMTAB entry.
type Symbol struct {
	Name       string
	Value      uint32
	Binding    symtab.Binding
	SectionIdx int16
}

// Relocation is one RELTAB entry, scoped to a section by index into
// the Object's Sections slice.
type Relocation struct {
	SectionIdx uint16
	Offset     uint32
	Symbol     string
	Kind       encoding.RelocKind
}

// Object is the in-memory model of an E32O file, independent of its
// serialized byte layout.
type Object struct {
	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
}

type symbolRecord struct {
	NameIdx    uint32
	Value      uint32
	Binding    uint8
	SectionIdx int16
	Reserved   uint8
}

type relocationRecord struct {
	SectionIdx uint16
	Offset     uint32
	SymbolIdx  uint32
	Kind       uint16
}

type sectionRecord struct {
	NameIdx uint32
	Type    uint8
	Flags   uint8
	Size    uint32
	FileOff uint32
}

// Write serializes obj to w in the §4.8 layout.
func Write(w io.Writer, obj *Object) error {
	strs := symtab.NewStringTable()
	for _, s := range obj.Sections {
		strs.Intern(s.Name)
	}
	for _, s := range obj.Symbols {
		strs.Intern(s.Name)
	}

	symIndex := make(map[string]uint32, len(obj.Symbols))
	for i, s := range obj.Symbols {
		symIndex[s.Name] = uint32(i)
	}

	var strBuf bytes.Buffer
	for _, s := range strs.All() {
		strBuf.WriteString(s)
		strBuf.WriteByte(0)
	}

	var symBuf bytes.Buffer
	for _, s := range obj.Symbols {
		rec := symbolRecord{
			NameIdx:    strs.Intern(s.Name),
			Value:      s.Value,
			Binding:    uint8(s.Binding),
			SectionIdx: s.SectionIdx,
		}
		if err := binary.Write(&symBuf, binary.LittleEndian, rec); err != nil {
			return err
		}
	}

	var relBuf bytes.Buffer
	for _, r := range obj.Relocations {
		idx, ok := symIndex[r.Symbol]
		if !ok {
			return fmt.Errorf("relocation references unknown symbol %q", r.Symbol)
		}
		rec := relocationRecord{
			SectionIdx: r.SectionIdx,
			Offset:     r.Offset,
			SymbolIdx:  idx,
			Kind:       uint16(r.Kind),
		}
		if err := binary.Write(&relBuf, binary.LittleEndian, rec); err != nil {
			return err
		}
	}

	var payloadBuf bytes.Buffer
	var secBuf bytes.Buffer
	for _, s := range obj.Sections {
		fileOff := uint32(0)
		if s.Type != SectionBSS {
			fileOff = uint32(payloadBuf.Len())
			payloadBuf.Write(s.Bytes)
		}
		rec := sectionRecord{
			NameIdx: strs.Intern(s.Name),
			Type:    uint8(s.Type),
			Flags:   uint8(s.Flags),
			Size:    s.Size,
			FileOff: fileOff,
		}
		if err := binary.Write(&secBuf, binary.LittleEndian, rec); err != nil {
			return err
		}
	}

	const headerLen = 4 + 2 + 2 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4
	strtabOff := uint32(headerLen)
	symtabOff := strtabOff + uint32(strBuf.Len())
	reltabOff := symtabOff + uint32(symBuf.Len())
	sectabOff := reltabOff + uint32(relBuf.Len())
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil { // FLAGS
		return err
	}
	fields := []uint32{
		strtabOff, uint32(strBuf.Len()),
		symtabOff, uint32(len(obj.Symbols)),
		reltabOff, uint32(len(obj.Relocations)),
		sectabOff, uint32(len(obj.Sections)),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	for _, buf := range []*bytes.Buffer{&strBuf, &symBuf, &relBuf, &secBuf, &payloadBuf} {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// header mirrors the fixed §4.8 preamble for Read.
type header struct {
	Magic     [4]byte
	Version   uint16
	Flags     uint16
	StrtabOff uint32
	StrtabLen uint32
	SymtabOff uint32
	SymCount  uint32
	RelOff    uint32
	RelCount  uint32
	SecOff    uint32
	SecCount  uint32
}

// Read parses an E32O blob back into an Object.
func Read(r io.ReaderAt) (*Object, error) {
	var hdr header
	hdrBuf := make([]byte, binary.Size(hdr))
	if _, err := r.ReadAt(hdrBuf, 0); err != nil {
		return nil, fmt.Errorf("reading E32O header: %w", err)
	}
	if err := binary.Read(bytes.NewReader(hdrBuf), binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Magic != magic {
		return nil, fmt.Errorf("not an E32O object: bad magic %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported E32O version %d", hdr.Version)
	}

	strBytes := make([]byte, hdr.StrtabLen)
	if _, err := r.ReadAt(strBytes, int64(hdr.StrtabOff)); err != nil {
		return nil, fmt.Errorf("reading STRTAB: %w", err)
	}
	names := splitNulTerminated(strBytes)

	symRecs := make([]symbolRecord, hdr.SymCount)
	if err := readRecords(r, int64(hdr.SymtabOff), symRecs); err != nil {
		return nil, fmt.Errorf("reading SYMTAB: %w", err)
	}
	symbols := make([]Symbol, len(symRecs))
	for i, rec := range symRecs {
		symbols[i] = Symbol{
			Name:       lookupName(names, rec.NameIdx),
			Value:      rec.Value,
			Binding:    symtab.Binding(rec.Binding),
			SectionIdx: rec.SectionIdx,
		}
	}

	relRecs := make([]relocationRecord, hdr.RelCount)
	if err := readRecords(r, int64(hdr.RelOff), relRecs); err != nil {
		return nil, fmt.Errorf("reading RELTAB: %w", err)
	}
	relocations := make([]Relocation, len(relRecs))
	for i, rec := range relRecs {
		var symName string
		if int(rec.SymbolIdx) < len(symbols) {
			symName = symbols[rec.SymbolIdx].Name
		}
		relocations[i] = Relocation{
			SectionIdx: rec.SectionIdx,
			Offset:     rec.Offset,
			Symbol:     symName,
			Kind:       encoding.RelocKind(rec.Kind),
		}
	}

	secRecs := make([]sectionRecord, hdr.SecCount)
	if err := readRecords(r, int64(hdr.SecOff), secRecs); err != nil {
		return nil, fmt.Errorf("reading SECTAB: %w", err)
	}
	sections := make([]Section, len(secRecs))
	for i, rec := range secRecs {
		sections[i] = Section{
			Name:  lookupName(names, rec.NameIdx),
			Type:  SectionType(rec.Type),
			Flags: SectionFlag(rec.Flags),
			Size:  rec.Size,
		}
		if sections[i].Type != SectionBSS {
			payloadBase := int64(hdr.SecOff) + int64(binary.Size(sectionRecord{}))*int64(hdr.SecCount)
			b := make([]byte, rec.Size)
			if _, err := r.ReadAt(b, payloadBase+int64(rec.FileOff)); err != nil {
				return nil, fmt.Errorf("reading section %q payload: %w", sections[i].Name, err)
			}
			sections[i].Bytes = b
		}
	}

	return &Object{Sections: sections, Symbols: symbols, Relocations: relocations}, nil
}

func readRecords[T any](r io.ReaderAt, off int64, out []T) error {
	if len(out) == 0 {
		return nil
	}
	size := binary.Size(out[0])
	buf := make([]byte, size*len(out))
	if _, err := r.ReadAt(buf, off); err != nil {
		return err
	}
	reader := bytes.NewReader(buf)
	for i := range out {
		if err := binary.Read(reader, binary.LittleEndian, &out[i]); err != nil {
			return err
		}
	}
	return nil
}

func splitNulTerminated(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	return out
}

func lookupName(names []string, idx uint32) string {
	if int(idx) < len(names) {
		return names[idx]
	}
	return ""
}
