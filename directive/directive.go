// Package directive implements the §4.7 Directive Handlers: the
// assembler-state mutations each dot-directive performs once its
// operand expressions have been evaluated. Grounded on loader.go's
// big per-directive switch (LoadProgramIntoVM), generalized from
// "write into VM memory at dataAddr" to "write into the active
// section.Builder", and on parser.go's directive-token parsing loop
// for which directives exist and what arguments they take.
package directive

import (
	"fmt"

	"github.com/lookbusy1344/emu32asm/section"
	"github.com/lookbusy1344/emu32asm/symtab"
	"github.com/lookbusy1344/emu32asm/token"
)

// Endian selects byte order for .db/.dw/.dd emission. The machine
// itself is always little-endian on the wire (§9); this only affects
// how multi-byte data-directive values are packed into bytes.
type Endian int

const (
	Little Endian = iota
	Big
)

// Handler applies directive effects to a section.Builder and a
// symtab.Table. One Handler is shared across an entire translation
// unit; the scope stack and endian mode are part of its state.
type Handler struct {
	Sections *section.Builder
	Symbols  *symtab.Table

	scopeStack     []int // token IDs pushed by .scope
	endian         [3]Endian
	stopped        bool
	enteredSection bool // true once .text/.data/.bss has been seen
}

// NewHandler creates a Handler over the given builder/table, every
// section starting little-endian.
func NewHandler(sections *section.Builder, symbols *symtab.Table) *Handler {
	return &Handler{Sections: sections, Symbols: symbols}
}

// Stopped reports whether a .stop directive has been processed; the
// assembler driver must ignore all remaining tokens once true.
func (h *Handler) Stopped() bool { return h.stopped }

// Global implements `.global S`: S becomes GLOBAL; if never otherwise
// defined it remains value 0, undefined-section. Per §4.7, `.global`
// is only legal outside any section — once `.text`/`.data`/`.bss` has
// been entered, it is an error.
func (h *Handler) Global(name string) error {
	if h.enteredSection {
		return fmt.Errorf("'.global' must appear before any section (.text/.data/.bss) is entered")
	}
	return h.Symbols.DeclareBinding(name, symtab.GLOBAL)
}

// Extern implements `.extern S`: S becomes WEAK, undefined-section.
// Subject to the same "outside any section" precondition as `.global`.
func (h *Handler) Extern(name string) error {
	if h.enteredSection {
		return fmt.Errorf("'.extern' must appear before any section (.text/.data/.bss) is entered")
	}
	return h.Symbols.DeclareBinding(name, symtab.WEAK)
}

// Equ implements `.equ S, E`: bind S to the already-evaluated value v.
func (h *Handler) Equ(name string, v uint32, at token.Span) error {
	return h.Symbols.Define(name, v, symtab.LOCAL, symtab.Undefined, at)
}

// Org implements `.org E` in the active section.
func (h *Handler) Org(v uint32) error { return h.Sections.Org(v) }

// Advance implements `.advance E`.
func (h *Handler) Advance(v uint32) error { return h.Sections.Advance(v) }

// Align implements `.align E` in the active section.
func (h *Handler) Align(v uint32) error { return h.Sections.Align(v) }

// Scope implements `.scope`: push tok's ID onto the scope stack.
func (h *Handler) Scope(tok token.Token) { h.scopeStack = append(h.scopeStack, tok.ID) }

// ScEnd implements `.scend`: pop the scope stack, erroring if empty.
func (h *Handler) ScEnd() error {
	if len(h.scopeStack) == 0 {
		return fmt.Errorf("'.scend' with no matching '.scope'")
	}
	h.scopeStack = h.scopeStack[:len(h.scopeStack)-1]
	return nil
}

// ScopeDepth returns the current scope-stack depth (0 = top level).
func (h *Handler) ScopeDepth() int { return len(h.scopeStack) }

// SwitchSection implements `.text`/`.data`/`.bss`.
func (h *Handler) SwitchSection(k section.Kind) {
	h.enteredSection = true
	h.Sections.Switch(k)
}

// SetEndian implements `.endian big`/`.endian little`: a section-local
// toggle affecting subsequent .db/.dw/.dd emission in the active
// section. [EXPANDED beyond the distilled spec table, supplementing
// original_source/core/assembler/src/Directives.cpp's
// DDB_HIGH_ENDIAN/DW_HIGH_ENDIAN per-emission directives with one
// stateful directive per section.]
func (h *Handler) SetEndian(e Endian) { h.endian[h.Sections.Active()] = e }

func (h *Handler) activeEndian() Endian { return h.endian[h.Sections.Active()] }

// requireNonBSS rejects directives that the §4.7 table restricts to
// DATA or TEXT (they emit concrete content, which .bss cannot hold).
func (h *Handler) requireNonBSS(directiveName string) error {
	if h.Sections.Active() == section.BSS {
		return fmt.Errorf("'%s' is not allowed in .bss", directiveName)
	}
	return nil
}

// emitSized packs each value into width bytes honoring the active
// section's endian mode, then emits the concatenated bytes.
func (h *Handler) emitSized(values []uint32, width int) error {
	out := make([]byte, 0, len(values)*width)
	for _, v := range values {
		b := make([]byte, width)
		for i := 0; i < width; i++ {
			if h.activeEndian() == Big {
				b[width-1-i] = byte(v >> (8 * i))
			} else {
				b[i] = byte(v >> (8 * i))
			}
		}
		out = append(out, b...)
	}
	return h.Sections.EmitBytes(out)
}

// DB/DW/DD implement `.db`/`.dw`/`.dd`: emit 1/2/4-byte values.
func (h *Handler) DB(values []uint32) error {
	if err := h.requireNonBSS(".db"); err != nil {
		return err
	}
	return h.emitSized(values, 1)
}

func (h *Handler) DW(values []uint32) error {
	if err := h.requireNonBSS(".dw"); err != nil {
		return err
	}
	return h.emitSized(values, 2)
}

func (h *Handler) DD(values []uint32) error {
	if err := h.requireNonBSS(".dd"); err != nil {
		return err
	}
	return h.emitSized(values, 4)
}

// Ascii implements `.ascii "…"`: emit raw string bytes, no terminator.
func (h *Handler) Ascii(s string) error {
	if err := h.requireNonBSS(".ascii"); err != nil {
		return err
	}
	return h.Sections.EmitBytes([]byte(s))
}

// Asciz implements `.asciz "…"`: emit string bytes plus a trailing
// NUL.
func (h *Handler) Asciz(s string) error {
	if err := h.requireNonBSS(".asciz"); err != nil {
		return err
	}
	return h.Sections.EmitBytes(append([]byte(s), 0))
}

// Fill implements `.fill N, V, S`.
func (h *Handler) Fill(count int, pattern uint32, size int) error {
	if err := h.requireNonBSS(".fill"); err != nil {
		return err
	}
	return h.Sections.Fill(count, pattern, size)
}

// Stop implements `.stop`: end of translation unit.
func (h *Handler) Stop() { h.stopped = true }

// Section implements the reserved `.section` directive: per §9's Open
// Question resolution it is unimplemented and must error.
func (h *Handler) Section() error {
	return fmt.Errorf(".section is reserved and not implemented")
}
