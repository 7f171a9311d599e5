// Package section implements the §4.4 Section Builder: the three
// built-in section buffers (.text/.data/.bss) and the cursor operations
// assembly directives drive. Grounded on the address/segment
// bookkeeping loader.go performs while walking directives (dataAddr/
// maxAddr tracking), generalized from "one flat VM memory image" to
// three independently-cursored section buffers plus a real BSS
// (size-only, no bytes).
package section

import "fmt"

// Kind identifies one of the three built-in sections.
type Kind int

const (
	Text Kind = iota
	Data
	BSS
)

func (k Kind) String() string {
	switch k {
	case Text:
		return ".text"
	case Data:
		return ".data"
	case BSS:
		return ".bss"
	default:
		return "?"
	}
}

// Section is a named mutable byte buffer with a cursor. BSS sections
// track only a size counter — emitting a nonzero byte into BSS is an
// error per §4.4.
type Section struct {
	Kind   Kind
	Bytes  []byte
	Size   uint32 // for BSS; equals len(Bytes) for TEXT/DATA
	cursor uint32
}

// Builder owns the three section buffers and the active-section
// selector, exposing the verbs named in §4.4.
type Builder struct {
	sections [3]*Section
	active   Kind
}

// NewBuilder creates a Builder with the three built-in sections empty
// and .text active.
func NewBuilder() *Builder {
	b := &Builder{active: Text}
	for k := Text; k <= BSS; k++ {
		b.sections[k] = &Section{Kind: k}
	}
	return b
}

// Switch sets the active section. The cursor of each section persists
// across switches — there is no implicit reset.
func (b *Builder) Switch(k Kind) { b.active = k }

// Active returns the currently selected section kind.
func (b *Builder) Active() Kind { return b.active }

// Section returns the buffer for k.
func (b *Builder) Section(k Kind) *Section { return b.sections[k] }

// Cursor returns the active section's logical byte offset. For .text
// this is always a multiple of 4 (instruction-count * 4).
func (b *Builder) Cursor() uint32 { return b.sections[b.active].cursor }

// OffsetIn returns the logical byte offset of section k.
func (b *Builder) OffsetIn(k Kind) uint32 { return b.sections[k].cursor }

// EmitBytes appends bs to the active section. For BSS, only the size
// counter advances — any nonzero byte is an error.
func (b *Builder) EmitBytes(bs []byte) error {
	sec := b.sections[b.active]
	if sec.Kind == BSS {
		for _, x := range bs {
			if x != 0 {
				return fmt.Errorf("cannot emit nonzero byte 0x%02x into .bss", x)
			}
		}
		sec.Size += uint32(len(bs))
		sec.cursor += uint32(len(bs))
		return nil
	}
	if end := uint32(len(sec.Bytes) + len(bs)); sec.Kind == Text && end%4 != 0 {
		return fmt.Errorf(".text cursor %d is not 4-byte aligned after emit", end)
	}
	sec.Bytes = append(sec.Bytes, bs...)
	sec.Size = uint32(len(sec.Bytes))
	sec.cursor = sec.Size
	return nil
}

// Org moves the active section's cursor forward to v, padding with
// zero bytes. Backward moves are an error; .text requires v % 4 == 0.
func (b *Builder) Org(v uint32) error {
	sec := b.sections[b.active]
	if v < sec.cursor {
		return fmt.Errorf("backward .org in %s: cursor is 0x%x, target is 0x%x", sec.Kind, sec.cursor, v)
	}
	if sec.Kind == Text && v%4 != 0 {
		return fmt.Errorf(".org target 0x%x in .text is not 4-byte aligned", v)
	}
	return b.EmitBytes(make([]byte, v-sec.cursor))
}

// Advance moves the active section's cursor forward by v bytes.
func (b *Builder) Advance(v uint32) error {
	sec := b.sections[b.active]
	if sec.Kind == Text && v%4 != 0 {
		return fmt.Errorf(".advance amount %d in .text is not 4-byte aligned", v)
	}
	return b.EmitBytes(make([]byte, v))
}

// Align pads forward to the next multiple of v. .text requires v % 4 == 0.
func (b *Builder) Align(v uint32) error {
	if v == 0 {
		return fmt.Errorf("alignment must be nonzero")
	}
	sec := b.sections[b.active]
	if sec.Kind == Text && v%4 != 0 {
		return fmt.Errorf(".align value %d in .text is not a multiple of 4", v)
	}
	rem := sec.cursor % v
	if rem == 0 {
		return nil
	}
	return b.EmitBytes(make([]byte, v-rem))
}

// Fill emits count copies of pattern truncated to size bytes,
// little-endian.
func (b *Builder) Fill(count int, pattern uint32, size int) error {
	if size < 1 || size > 4 {
		return fmt.Errorf("fill size must be 1-4 bytes, got %d", size)
	}
	unit := make([]byte, size)
	for i := 0; i < size; i++ {
		unit[i] = byte(pattern >> (8 * i))
	}
	out := make([]byte, 0, count*size)
	for i := 0; i < count; i++ {
		out = append(out, unit...)
	}
	return b.EmitBytes(out)
}

// CheckPC asserts that the active section's cursor equals expected.
func (b *Builder) CheckPC(expected uint32) error {
	if got := b.Cursor(); got != expected {
		return fmt.Errorf("checkpc mismatch in %s: expected 0x%x, got 0x%x", b.sections[b.active].Kind, expected, got)
	}
	return nil
}
