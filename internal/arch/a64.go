package arch

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

const (
	// -----------------------------------
	// | 000101 | ... 26 bit address ... |
	// -----------------------------------
	_B = uint32(5 << 26)

	// -----------------------------------
	// | 100101 | ... 26 bit address ... |
	// -----------------------------------
	_BL = uint32(1<<31 | _B)

	// ADR/ADRP is encoded as:
	// --------------------------------------------------
	// | P | lo 2 bits | 10000 | hi 19 bits | 5-bit reg |
	// --------------------------------------------------
	// Mask for the address:
	adrAddressMask = uint32(3<<29 | 0x7ffff<<5)

	_NOP = uint32(0xd503201f)

	// LDR X17, #8 ; BR X17 ; .quad dest
	_LDRlitX17 = uint32(0x58000051)
	_BRX17     = uint32(0xd61f0220)

	a64RedirectShort = 4
	a64RedirectFar   = 16
)

// a64 is the arm64 backend.
type a64 struct{}

func (a64) Name() string { return "arm64" }

func (a64) RedirectLen(from, to uintptr) int {
	if bFits(from, to) {
		return a64RedirectShort
	}
	return a64RedirectFar
}

func (a a64) Redirect(buf []byte, from, to uintptr) error {
	need := a.RedirectLen(from, to)
	if len(buf) < need || len(buf)%4 != 0 {
		return fmt.Errorf("%w: redirect needs %d bytes, have %d", ErrShortPrologue, need, len(buf))
	}

	var n int
	if need == a64RedirectShort {
		offset := int64(to) - int64(from)
		binary.LittleEndian.PutUint32(buf, _B|(uint32(offset>>2)&(1<<26-1)))
		n = 4
	} else {
		n = putAbsJumpA64(buf, to)
	}

	for i := n; i < len(buf); i += 4 {
		binary.LittleEndian.PutUint32(buf[i:], _NOP)
	}
	return nil
}

func (a64) Trampoline(dst []byte, dstAddr uintptr, src []byte, srcAddr uintptr, min int) (used, consumed int, err error) {
	consumed = (min + 3) &^ 3
	if consumed > len(src) {
		return 0, 0, fmt.Errorf("%w: need %d bytes, function shorter", ErrShortPrologue, consumed)
	}
	if consumed+a64RedirectFar > len(dst) {
		return 0, 0, fmt.Errorf("%w: trampoline buffer full", ErrRange)
	}

	copy(dst, src[:consumed])

	for i := 0; i < consumed; i += 4 {
		raw := dst[i : i+4]

		inst, derr := arm64asm.Decode(raw)
		if derr != nil {
			if bytes.Equal(raw, []byte{0, 0, 0, 0}) {
				return 0, 0, fmt.Errorf("%w: hit padding at offset %d", ErrShortPrologue, i)
			}
			return 0, 0, fmt.Errorf("%w: decode error at offset %d: %v", ErrShortPrologue, i, derr)
		}

		for _, arg := range inst.Args {
			if _, ok := arg.(arm64asm.PCRel); ok {
				err = fixPCRelA64(inst, raw, srcAddr+uintptr(i), dstAddr+uintptr(i))
				if err != nil {
					return 0, 0, fmt.Errorf("relocate at offset %d: %w", i, err)
				}
				break
			}
		}
	}

	used = consumed + putAbsJumpA64(dst[consumed:], srcAddr+uintptr(consumed))

	for i := used; i+4 <= len(dst); i += 4 {
		binary.LittleEndian.PutUint32(dst[i:], _NOP)
	}
	return used, consumed, nil
}

// fixPCRelA64 rewrites one PC-relative instruction in place so it resolves
// to the same absolute target when executed from dstPC instead of srcPC.
func fixPCRelA64(inst arm64asm.Inst, raw []byte, srcPC, dstPC uintptr) error {
	word := binary.LittleEndian.Uint32(raw)

	switch inst.Op {
	case arm64asm.ADRP:
		// arm64asm converts the offset to bytes.
		oldOffset := int64(pcRelOf(inst))

		// Page-align both addresses before computing the offset.
		newOffsetPages := (int64(srcPC&^uintptr(0xfff)) + oldOffset - int64(dstPC&^uintptr(0xfff))) >> 12

		if newOffsetPages < -(1<<20) || newOffsetPages >= (1<<20) {
			return fmt.Errorf("%w: ADRP target %d pages away", ErrRange, newOffsetPages)
		}

		p := uint32(newOffsetPages)
		encoded := word &^ adrAddressMask
		encoded |= (p & 3) << 29             // Lowest 2 bits to bits 30 and 29
		encoded |= ((p >> 2) & 0x7ffff) << 5 // Highest 19 bits to bits 23 to 5
		binary.LittleEndian.PutUint32(raw, encoded)

	case arm64asm.ADR:
		offset := int64(srcPC) + int64(pcRelOf(inst)) - int64(dstPC)
		if offset < -(1<<20) || offset >= (1<<20) {
			return fmt.Errorf("%w: ADR target %d bytes away", ErrRange, offset)
		}

		p := uint32(offset)
		encoded := word &^ adrAddressMask
		encoded |= (p & 3) << 29
		encoded |= ((p >> 2) & 0x7ffff) << 5
		binary.LittleEndian.PutUint32(raw, encoded)

	case arm64asm.B, arm64asm.BL:
		if word&0x7c000000 != _B {
			// B.cond shares the mnemonic but uses a 19-bit offset.
			return patchImm19(raw, word, inst, srcPC, dstPC)
		}
		offset := int64(srcPC) + int64(pcRelOf(inst)) - int64(dstPC)

		// B and BL encode a 26-bit signed instruction offset.
		if offset < -(1<<27) || offset >= (1<<27) {
			return fmt.Errorf("%w: branch target %d bytes away", ErrRange, offset)
		}

		base := _B
		if word&(1<<31) != 0 {
			base = _BL
		}
		binary.LittleEndian.PutUint32(raw, base|(uint32(offset>>2)&(1<<26-1)))

	case arm64asm.CBZ, arm64asm.CBNZ:
		return patchImm19(raw, word, inst, srcPC, dstPC)

	case arm64asm.TBZ, arm64asm.TBNZ:
		offset := int64(srcPC) + int64(pcRelOf(inst)) - int64(dstPC)
		if offset < -(1<<15) || offset >= (1<<15) {
			return fmt.Errorf("%w: TBZ target %d bytes away", ErrRange, offset)
		}
		encoded := word &^ uint32(0x3fff<<5)
		encoded |= (uint32(offset>>2) & 0x3fff) << 5
		binary.LittleEndian.PutUint32(raw, encoded)

	case arm64asm.LDR:
		// LDR (literal) is the only LDR form with a PCRel arg.
		return patchImm19(raw, word, inst, srcPC, dstPC)

	default:
		return fmt.Errorf("%w: PC-relative %v", ErrUnrelocatable, inst.Op)
	}

	return nil
}

func patchImm19(raw []byte, word uint32, inst arm64asm.Inst, srcPC, dstPC uintptr) error {
	offset := int64(srcPC) + int64(pcRelOf(inst)) - int64(dstPC)
	if offset < -(1<<20) || offset >= (1<<20) {
		return fmt.Errorf("%w: %v target %d bytes away", ErrRange, inst.Op, offset)
	}
	encoded := word &^ uint32(0x7ffff<<5)
	encoded |= (uint32(offset>>2) & 0x7ffff) << 5
	binary.LittleEndian.PutUint32(raw, encoded)
	return nil
}

func pcRelOf(inst arm64asm.Inst) arm64asm.PCRel {
	for _, arg := range inst.Args {
		if rel, ok := arg.(arm64asm.PCRel); ok {
			return rel
		}
	}
	return 0
}

// putAbsJumpA64 writes LDR X17, #8 ; BR X17 ; .quad dest. X17 is the
// intra-procedure-call scratch register, free to clobber at a function
// boundary.
func putAbsJumpA64(buf []byte, dest uintptr) int {
	binary.LittleEndian.PutUint32(buf, _LDRlitX17)
	binary.LittleEndian.PutUint32(buf[4:], _BRX17)
	binary.LittleEndian.PutUint64(buf[8:], uint64(dest))
	return a64RedirectFar
}

func bFits(from, to uintptr) bool {
	offset := int64(to) - int64(from)
	return offset >= -(1<<27) && offset < (1<<27)
}

func disassembleA64(code []byte, baseAddr uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i+4 <= len(code); i += 4 {
		var asm string
		inst, err := arm64asm.Decode(code[i:])
		if err == nil {
			asm = inst.String()
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", baseAddr+uintptr(i), hex.EncodeToString(code[i:i+4]), asm)
	}

	return buf.String(), nil
}
