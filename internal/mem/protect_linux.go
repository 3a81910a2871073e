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

// setProtect changes the protection of the page-aligned region and reports
// the previous protection when the platform can tell. On Linux the previous
// value is read from /proc/self/maps before the change.
func setProtect(start uintptr, size int, p Prot) (old Prot, known bool, err error) {
	old, known = queryProt(start)

	err = unix.Mprotect(Slice(start, size), protBits(p))
	if err != nil {
		return 0, false, fmt.Errorf("%w: mprotect: %v", ErrProtect, err)
	}
	return old, known, nil
}
