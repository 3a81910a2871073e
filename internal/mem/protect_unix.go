//go:build darwin || freebsd || netbsd || openbsd

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Native values handed to the arena's malloc backend.
const (
	arenaProtExec = unix.PROT_EXEC
	arenaProtRX   = unix.PROT_READ | unix.PROT_EXEC
	arenaProtRWX  = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

func protBits(p Prot) int {
	switch p {
	case ProtRead:
		return unix.PROT_READ
	case ProtRW:
		return unix.PROT_READ | unix.PROT_WRITE
	case ProtRX:
		return unix.PROT_READ | unix.PROT_EXEC
	default:
		return unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	}
}

// setProtect changes the protection of the page-aligned region. These
// platforms have no cheap way to read the previous protection, so the
// caller's fallback is used on restore.
func setProtect(start uintptr, size int, p Prot) (old Prot, known bool, err error) {
	err = unix.Mprotect(Slice(start, size), protBits(p))
	if err != nil {
		return 0, false, fmt.Errorf("%w: mprotect: %v", ErrProtect, err)
	}
	return 0, false, nil
}

func checkMapped(addr uintptr, n int) error { return nil }

// These platforms have no mapping query; trust the caller's bound.
func mappedLen(addr uintptr, max int) (int, error) { return max, nil }
