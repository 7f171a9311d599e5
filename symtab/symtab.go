// Package symtab implements the interned string table and the symbol
// table lifecycle described in §3/§4.5 of the toolchain specification.
package symtab

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/token"
)

// Binding is a symbol's linkage class.
type Binding int

const (
	LOCAL Binding = iota
	WEAK
	GLOBAL
)

func (b Binding) String() string {
	switch b {
	case LOCAL:
		return "LOCAL"
	case WEAK:
		return "WEAK"
	case GLOBAL:
		return "GLOBAL"
	default:
		return "UNKNOWN"
	}
}

// Undefined is the sentinel section index for a symbol with no section.
const Undefined int16 = -1

// StringTable is an append-only, insertion-ordered interning table.
// Grounded on the interning half of the teacher's SymbolTable
// (parser/symbols.go), split out as its own type since the object
// format needs a standalone name_idx.
type StringTable struct {
	index  map[string]uint32
	values []string
}

// NewStringTable creates an empty string table.
func NewStringTable() *StringTable {
	return &StringTable{index: make(map[string]uint32)}
}

// Intern returns the index for s, inserting it if not already present.
func (st *StringTable) Intern(s string) uint32 {
	if idx, ok := st.index[s]; ok {
		return idx
	}
	idx := uint32(len(st.values))
	st.values = append(st.values, s)
	st.index[s] = idx
	return idx
}

// String returns the string at idx.
func (st *StringTable) String(idx uint32) string {
	return st.values[idx]
}

// Len returns the number of interned strings.
func (st *StringTable) Len() int { return len(st.values) }

// All returns the interned strings in insertion order.
func (st *StringTable) All() []string {
	out := make([]string, len(st.values))
	copy(out, st.values)
	return out
}

// Symbol is a symbol table entry: (name-index, value, binding,
// section-index). SectionIdx == Undefined means "undefined in this unit".
type Symbol struct {
	NameIndex  uint32
	Value      uint32
	Binding    Binding
	SectionIdx int16
	Defined    bool
	DefSpan    token.Span
	Refs       []token.Span
}

// Table manages symbol lifecycle: a symbol transitions from undefined to
// defined exactly once; redefinition in a different section is an
// error; once a symbol is defined, only WEAK→LOCAL and LOCAL→GLOBAL
// binding upgrades are allowed (see UpgradeBinding).
type Table struct {
	strings *StringTable
	byName  map[string]*Symbol
	order   []string
}

// NewTable creates a symbol table backed by strings.
func NewTable(strings *StringTable) *Table {
	return &Table{strings: strings, byName: make(map[string]*Symbol)}
}

// Reference returns the symbol for name, creating an undefined entry
// (section = Undefined) if this is the first mention.
func (t *Table) Reference(name string, at token.Span) *Symbol {
	sym, ok := t.byName[name]
	if !ok {
		sym = &Symbol{NameIndex: t.strings.Intern(name), SectionIdx: Undefined}
		t.byName[name] = sym
		t.order = append(t.order, name)
	}
	sym.Refs = append(sym.Refs, at)
	return sym
}

// Lookup returns the symbol for name without creating it.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.byName[name]
	return sym, ok
}

// Define binds name to value/binding/section, enforcing the lifecycle
// invariants from §3: a symbol may go undefined→defined exactly once;
// redefinition in a different section is an error.
func (t *Table) Define(name string, value uint32, binding Binding, section int16, at token.Span) error {
	sym, ok := t.byName[name]
	if !ok {
		sym = &Symbol{NameIndex: t.strings.Intern(name), SectionIdx: Undefined}
		t.byName[name] = sym
		t.order = append(t.order, name)
	}
	if sym.Defined {
		if sym.SectionIdx != section || sym.Value != value {
			return fmt.Errorf("duplicate definition of symbol %q at %s (first defined at %s)", name, at, sym.DefSpan)
		}
		return fmt.Errorf("duplicate definition of symbol %q at %s", name, at)
	}
	sym.Value = value
	// A plain label definition passes LOCAL; it must not clobber a
	// stronger binding already declared by .global/.extern.
	if binding != LOCAL || sym.Binding == LOCAL {
		sym.Binding = binding
	}
	sym.SectionIdx = section
	sym.Defined = true
	sym.DefSpan = at
	return nil
}

// DeclareBinding records an explicitly declared binding for name
// (`.global`/`.extern`). A symbol seen for the first time here takes
// the binding directly, with Defined left false and SectionIdx
// Undefined (§4.7: ".global S ... undefined-section"). A symbol
// already known falls back to the normal UpgradeBinding rules, so
// `.global` after a label's LOCAL definition still legally promotes it
// to GLOBAL.
func (t *Table) DeclareBinding(name string, binding Binding) error {
	if _, ok := t.byName[name]; ok {
		return t.UpgradeBinding(name, binding)
	}
	sym := &Symbol{NameIndex: t.strings.Intern(name), SectionIdx: Undefined, Binding: binding}
	t.byName[name] = sym
	t.order = append(t.order, name)
	return nil
}

// UpgradeBinding applies one of the two legal binding upgrades
// (WEAK→LOCAL, LOCAL→GLOBAL); re-declaring the current binding is a
// no-op. While the symbol is still undefined, any other transition is
// also accepted; once it is defined, any other transition is an error.
func (t *Table) UpgradeBinding(name string, to Binding) error {
	sym, ok := t.byName[name]
	if !ok {
		return fmt.Errorf("cannot change binding of unknown symbol %q", name)
	}
	switch {
	case sym.Binding == WEAK && to == LOCAL:
	case sym.Binding == LOCAL && to == GLOBAL:
	case sym.Binding == to:
	case !sym.Defined:
		// Nothing has committed to a concrete value/section yet, so
		// any re-declaration of intended binding (e.g. `.extern` after
		// an earlier forward reference) is still safe to apply.
	default:
		return fmt.Errorf("illegal binding upgrade for %q: %s -> %s", name, sym.Binding, to)
	}
	sym.Binding = to
	return nil
}

// UndefinedNames returns the names of all symbols still lacking a
// definition, in first-seen order.
func (t *Table) UndefinedNames() []string {
	var out []string
	for _, name := range t.order {
		if !t.byName[name].Defined {
			out = append(out, name)
		}
	}
	return out
}

// All returns a copy of the name-to-symbol map. A map carries no order;
// OrderedNames gives the first-seen order.
func (t *Table) All() map[string]*Symbol {
	out := make(map[string]*Symbol, len(t.byName))
	for k, v := range t.byName {
		out[k] = v
	}
	return out
}

// OrderedNames returns symbol names in the order they were first seen.
func (t *Table) OrderedNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Strings returns the backing string table.
func (t *Table) Strings() *StringTable { return t.strings }
