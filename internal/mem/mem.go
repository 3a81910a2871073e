// Package mem is the raw memory layer: page-granular protection changes,
// byte patching at arbitrary addresses and the executable arena that backs
// trampolines.
package mem

import (
	"errors"
	"os"
	"unsafe"
)

var (
	// ErrProtect means a page protection change was refused.
	ErrProtect = errors.New("protection change failed")
	// ErrUnmapped means the address does not resolve to mapped memory.
	ErrUnmapped = errors.New("address not mapped")
	// ErrCrossesUnmapped means the buffer extends past the mapped region.
	ErrCrossesUnmapped = errors.New("buffer crosses unmapped boundary")
	// ErrExecAlloc means executable memory could not be obtained.
	ErrExecAlloc = errors.New("executable allocation failed")
)

// Prot is a portable protection value. Platform files translate it to
// mprotect or VirtualProtect constants.
type Prot int

const (
	ProtRead Prot = iota
	ProtRW
	ProtRX
	ProtRWX
)

// Kind tells Patch whether the bytes replace instructions or data. Code
// pages go through RWX and get an instruction cache flush, data pages only
// need RW.
type Kind int

const (
	Code Kind = iota
	Data
)

func (k Kind) writable() Prot {
	if k == Data {
		return ProtRW
	}
	return ProtRWX
}

// restore is the protection assumed for a page when the platform cannot
// report the previous value.
func (k Kind) restore() Prot {
	if k == Data {
		return ProtRW
	}
	return ProtRX
}

// PageRange returns the page-aligned region covering n bytes at addr.
func PageRange(addr uintptr, n int) (uintptr, int) {
	pageSize := uintptr(os.Getpagesize())

	start := addr &^ (pageSize - 1)
	size := (int(addr-start) + n + int(pageSize) - 1) &^ (int(pageSize) - 1)
	return start, size
}

// Slice aliases n bytes of process memory at addr. The caller is
// responsible for addr being mapped and for the lifetime of the view.
func Slice(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// ReadAt copies n bytes of process memory at addr.
func ReadAt(addr uintptr, n int) []byte {
	buf := make([]byte, n)
	copy(buf, Slice(addr, n))
	return buf
}

// ReadRange copies up to max bytes at addr, stopping at the end of the
// containing mapping so the read cannot fault past it. It fails when addr
// itself is unmapped.
func ReadRange(addr uintptr, max int) ([]byte, error) {
	if addr == 0 {
		return nil, ErrUnmapped
	}
	n, err := mappedLen(addr, max)
	if err != nil {
		return nil, err
	}
	return ReadAt(addr, n), nil
}

// Addr returns the starting address of a byte slice.
func Addr(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}
