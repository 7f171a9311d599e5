package asm

import (
	"github.com/lookbusy1344/emu32asm/object"
	"github.com/lookbusy1344/emu32asm/section"
)

// sectionName/sectionType/sectionFlags map a section.Kind to its
// E32O-level identity (§4.8: SECTAB entries are named, typed, flagged).
func sectionName(k section.Kind) string {
	switch k {
	case section.Text:
		return ".text"
	case section.Data:
		return ".data"
	default:
		return ".bss"
	}
}

func sectionType(k section.Kind) object.SectionType {
	switch k {
	case section.Text:
		return object.SectionText
	case section.Data:
		return object.SectionData
	default:
		return object.SectionBSS
	}
}

func sectionFlags(k section.Kind) object.SectionFlag {
	switch k {
	case section.Text:
		return object.FlagExecutable
	case section.Data:
		return object.FlagWritable
	default:
		return object.FlagWritable
	}
}

// Object assembles the current section/symbol/relocation state into an
// object.Object, in the fixed .text/.data/.bss order §4.8 assumes for
// SECTAB.
func (a *Assembler) Object() *object.Object {
	obj := &object.Object{}

	for k := section.Text; k <= section.BSS; k++ {
		sec := a.sections.Section(k)
		obj.Sections = append(obj.Sections, object.Section{
			Name:  sectionName(k),
			Type:  sectionType(k),
			Flags: sectionFlags(k),
			Size:  sec.Size,
			Bytes: sec.Bytes,
		})
	}

	for _, name := range a.symbols.OrderedNames() {
		sym, _ := a.symbols.Lookup(name)
		obj.Symbols = append(obj.Symbols, object.Symbol{
			Name:       name,
			Value:      sym.Value,
			Binding:    sym.Binding,
			SectionIdx: sym.SectionIdx,
		})
	}

	for k := section.Text; k <= section.BSS; k++ {
		obj.Relocations = append(obj.Relocations, a.relocs[k]...)
	}

	return obj
}
