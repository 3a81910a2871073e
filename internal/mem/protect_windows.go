package mem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Native values handed to the arena's malloc backend.
const (
	arenaProtExec = windows.PAGE_EXECUTE
	arenaProtRX   = windows.PAGE_EXECUTE_READ
	arenaProtRWX  = windows.PAGE_EXECUTE_READWRITE
)

func protBits(p Prot) uint32 {
	switch p {
	case ProtRead:
		return windows.PAGE_READONLY
	case ProtRW:
		return windows.PAGE_READWRITE
	case ProtRX:
		return windows.PAGE_EXECUTE_READ
	default:
		return windows.PAGE_EXECUTE_READWRITE
	}
}

func protFromBits(bits uint32) (Prot, bool) {
	switch bits {
	case windows.PAGE_READONLY:
		return ProtRead, true
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return ProtRW, true
	case windows.PAGE_EXECUTE, windows.PAGE_EXECUTE_READ:
		return ProtRX, true
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return ProtRWX, true
	default:
		return 0, false
	}
}

// setProtect changes the protection of the page-aligned region.
// VirtualProtect reports the previous protection directly.
func setProtect(start uintptr, size int, p Prot) (old Prot, known bool, err error) {
	var prev uint32
	err = windows.VirtualProtect(start, uintptr(size), protBits(p), &prev)
	if err != nil {
		return 0, false, fmt.Errorf("%w: VirtualProtect: %v", ErrProtect, err)
	}
	old, known = protFromBits(prev)
	return old, known, nil
}

func checkMapped(addr uintptr, n int) error {
	var info windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info))
	if err != nil || info.State != windows.MEM_COMMIT {
		return ErrUnmapped
	}
	if addr+uintptr(n) > info.BaseAddress+info.RegionSize {
		return ErrCrossesUnmapped
	}
	return nil
}

// mappedLen clamps max to the end of the committed region containing addr.
func mappedLen(addr uintptr, max int) (int, error) {
	var info windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info))
	if err != nil || info.State != windows.MEM_COMMIT {
		return 0, ErrUnmapped
	}
	if n := int(info.BaseAddress + info.RegionSize - addr); n < max {
		return n, nil
	}
	return max, nil
}
