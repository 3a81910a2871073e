package arch

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeCALLrel = 0xe8 // CALL rel32
	opcodeINT3    = 0xcc
	opcodeJMP     = 0xe9 // JMP rel32
	opcodeJMPrel8 = 0xeb

	// A JMP rel32 redirect, or the indirect form when the replacement is
	// out of rel32 range.
	x86RedirectShort = 5
	x86RedirectFar   = 14
)

// x86 is the amd64 backend.
type x86 struct{}

func (x86) Name() string { return "amd64" }

func (x86) RedirectLen(from, to uintptr) int {
	if rel32Fits(from+x86RedirectShort, to) {
		return x86RedirectShort
	}
	return x86RedirectFar
}

func (x x86) Redirect(buf []byte, from, to uintptr) error {
	need := x.RedirectLen(from, to)
	if len(buf) < need {
		return fmt.Errorf("%w: redirect needs %d bytes, have %d", ErrShortPrologue, need, len(buf))
	}

	var n int
	if need == x86RedirectShort {
		buf[0] = opcodeJMP
		binary.LittleEndian.PutUint32(buf[1:], uint32(int32(int64(to)-int64(from)-x86RedirectShort)))
		n = x86RedirectShort
	} else {
		n = putAbsJump(buf, to)
	}

	// Pad the rest with INT3 opcodes to match what the compiler does.
	for i := n; i < len(buf); i++ {
		buf[i] = opcodeINT3
	}
	return nil
}

func (x86) Trampoline(dst []byte, dstAddr uintptr, src []byte, srcAddr uintptr, min int) (used, consumed int, err error) {
	if min > len(src) {
		return 0, 0, fmt.Errorf("%w: need %d bytes, function shorter", ErrShortPrologue, min)
	}

	for consumed < min {
		if src[consumed] == opcodeINT3 {
			// Compiler padding; the function body ended early.
			return 0, 0, fmt.Errorf("%w: hit padding at offset %d", ErrShortPrologue, consumed)
		}

		inst, derr := x86asm.Decode(src[consumed:], 64)
		if derr != nil {
			return 0, 0, fmt.Errorf("%w: decode error at offset %d: %v", ErrShortPrologue, consumed, derr)
		}

		// Address of the instruction following this one, the base for
		// every relative operand.
		srcNext := srcAddr + uintptr(consumed) + uintptr(inst.Len)

		n, rerr := relocateX86(dst[used:], dstAddr+uintptr(used), src[consumed:consumed+inst.Len], srcNext, inst)
		if rerr != nil {
			return 0, 0, fmt.Errorf("relocate at offset %d: %w", consumed, rerr)
		}

		used += n
		consumed += inst.Len
	}

	if used+x86RedirectFar > len(dst) {
		return 0, 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
	}
	used += putAbsJump(dst[used:], srcAddr+uintptr(consumed))

	for i := used; i < len(dst); i++ {
		dst[i] = opcodeINT3
	}
	return used, consumed, nil
}

// relocateX86 writes one instruction into out, rewriting relative operands
// so it behaves identically at its new address. It returns the emitted
// length, which may exceed the source length when a rel8 branch widens.
func relocateX86(out []byte, outAddr uintptr, raw []byte, srcNext uintptr, inst x86asm.Inst) (int, error) {
	if rel, ok := relArg(inst); ok {
		target := uintptr(int64(srcNext) + int64(rel))
		switch {
		case raw[0] == opcodeCALLrel:
			return putRel32(out, outAddr, opcodeCALLrel, target)
		case raw[0] == opcodeJMP || raw[0] == opcodeJMPrel8:
			return putRel32(out, outAddr, opcodeJMP, target)
		case raw[0]&0xf0 == 0x70:
			return putJcc(out, outAddr, raw[0]&0x0f, target)
		case raw[0] == 0x0f && raw[1]&0xf0 == 0x80:
			return putJcc(out, outAddr, raw[1]&0x0f, target)
		default:
			return 0, fmt.Errorf("%w: relative branch %v", ErrUnrelocatable, inst.Op)
		}
	}

	if mem, ok := ripArg(inst); ok {
		// The displacement sits in the last 4 bytes of the encoding.
		// That only holds when no immediate follows it.
		if hasImm(inst) {
			return 0, fmt.Errorf("%w: RIP-relative %v with immediate", ErrUnrelocatable, inst.Op)
		}
		if len(out) < inst.Len {
			return 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
		}

		copy(out, raw[:inst.Len-4])

		target := int64(srcNext) + mem.Disp
		newDisp := target - int64(outAddr) - int64(inst.Len)
		if newDisp < math.MinInt32 || newDisp > math.MaxInt32 {
			return 0, fmt.Errorf("%w: RIP-relative operand %#x", ErrRange, target)
		}
		binary.LittleEndian.PutUint32(out[inst.Len-4:], uint32(int32(newDisp)))
		return inst.Len, nil
	}

	if len(out) < inst.Len {
		return 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
	}
	copy(out, raw[:inst.Len])
	return inst.Len, nil
}

func relArg(inst x86asm.Inst) (x86asm.Rel, bool) {
	for _, a := range inst.Args {
		if r, ok := a.(x86asm.Rel); ok {
			return r, true
		}
	}
	return 0, false
}

func ripArg(inst x86asm.Inst) (x86asm.Mem, bool) {
	for _, a := range inst.Args {
		if m, ok := a.(x86asm.Mem); ok && m.Base == x86asm.RIP {
			return m, true
		}
	}
	return x86asm.Mem{}, false
}

func hasImm(inst x86asm.Inst) bool {
	for _, a := range inst.Args {
		if _, ok := a.(x86asm.Imm); ok {
			return true
		}
	}
	return false
}

func putRel32(out []byte, outAddr uintptr, op byte, target uintptr) (int, error) {
	const n = 5
	if len(out) < n {
		return 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
	}

	rel := int64(target) - int64(outAddr) - n
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return 0, fmt.Errorf("%w: branch target %#x", ErrRange, target)
	}

	out[0] = op
	binary.LittleEndian.PutUint32(out[1:], uint32(int32(rel)))
	return n, nil
}

func putJcc(out []byte, outAddr uintptr, cc byte, target uintptr) (int, error) {
	const n = 6
	if len(out) < n {
		return 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
	}

	rel := int64(target) - int64(outAddr) - n
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return 0, fmt.Errorf("%w: branch target %#x", ErrRange, target)
	}

	out[0] = 0x0f
	out[1] = 0x80 | cc
	binary.LittleEndian.PutUint32(out[2:], uint32(int32(rel)))
	return n, nil
}

// putAbsJump writes JMP [RIP+0] followed by the 8-byte destination.
func putAbsJump(buf []byte, dest uintptr) int {
	buf[0] = 0xff
	buf[1] = 0x25
	binary.LittleEndian.PutUint32(buf[2:], 0)
	binary.LittleEndian.PutUint64(buf[6:], uint64(dest))
	return x86RedirectFar
}

func rel32Fits(src, dst uintptr) bool {
	d := int64(dst) - int64(src)
	return d >= math.MinInt32 && d <= math.MaxInt32
}

func disassembleX86(code []byte, baseAddr uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		inst, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return "", fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", baseAddr+uintptr(i), hex.EncodeToString(code[i:i+inst.Len]), inst.String())

		i += inst.Len
	}

	return buf.String(), nil
}
