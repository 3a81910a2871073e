// Package arch holds the per-instruction-set backends that encode redirect
// jumps and relocate function prologues into trampolines. Each supported
// architecture provides one Relocator; everything above this package is
// architecture-agnostic.
package arch

import "errors"

var (
	// ErrShortPrologue means the function body ends before enough bytes
	// could be decoded to fit the redirect jump.
	ErrShortPrologue = errors.New("prologue too short to relocate")
	// ErrUnrelocatable means the prologue contains an instruction whose
	// relative addressing cannot be rewritten for the new location.
	ErrUnrelocatable = errors.New("unrelocatable instruction in prologue")
	// ErrRange means a relocated target is out of reach of the encoding.
	ErrRange = errors.New("relocated target out of range")
	// ErrUnsupported means no backend exists for this architecture.
	ErrUnsupported = errors.New("unsupported architecture")
)

// Relocator is the instruction-set capability: redirect encoding at the
// hook site and prologue relocation into the trampoline.
type Relocator interface {
	// Name is the GOARCH-style name of the instruction set.
	Name() string

	// RedirectLen returns how many prologue bytes the redirect from one
	// address to the other will overwrite.
	RedirectLen(from, to uintptr) int

	// Redirect fills buf with a jump from from to to, padding the
	// remainder of buf with trap/no-op filler. len(buf) must be at least
	// RedirectLen(from, to) and cover whole instructions of the target.
	Redirect(buf []byte, from, to uintptr) error

	// Trampoline decodes at least min bytes of whole instructions from
	// src (mapped at srcAddr), writes address-relocated equivalents into
	// dst (mapped at dstAddr) and appends a jump back to srcAddr+consumed.
	// It returns the bytes used in dst and the bytes consumed from src.
	Trampoline(dst []byte, dstAddr uintptr, src []byte, srcAddr uintptr, min int) (used, consumed int, err error)
}

// Current returns the backend for the running architecture, or nil when
// the architecture is unsupported.
func Current() Relocator {
	return current
}
