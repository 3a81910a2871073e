package image

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

type systemCatalog struct{}

func (systemCatalog) Images() ([]Image, error) {
	proc := windows.CurrentProcess()

	var mods [1024]windows.Handle
	var needed uint32
	err := windows.EnumProcessModules(proc, &mods[0], uint32(unsafe.Sizeof(mods)), &needed)
	if err != nil {
		return nil, fmt.Errorf("EnumProcessModules: %w", err)
	}

	count := int(needed / uint32(unsafe.Sizeof(mods[0])))
	if count > len(mods) {
		count = len(mods)
	}

	images := make([]Image, 0, count)
	for _, mod := range mods[:count] {
		var buf [windows.MAX_PATH]uint16
		if err := windows.GetModuleFileNameEx(proc, mod, &buf[0], uint32(len(buf))); err != nil {
			continue
		}
		path := windows.UTF16ToString(buf[:])
		if path == "" {
			continue
		}
		images = append(images, Image{
			Name: filepath.Base(path),
			Path: path,
			// An HMODULE is the module's base address.
			Base: uintptr(mod),
		})
	}
	return images, nil
}

func (systemCatalog) Exports(img Image) ([]Export, error) {
	exportRVA, _, err := dataDirectory(img.Base, 0) // IMAGE_DIRECTORY_ENTRY_EXPORT
	if err != nil {
		return nil, err
	}
	if exportRVA == 0 {
		return nil, nil
	}

	dir := img.Base + uintptr(exportRVA)
	numNames := read32(dir + 24)
	funcsRVA := read32(dir + 28)
	namesRVA := read32(dir + 32)
	ordsRVA := read32(dir + 36)

	exports := make([]Export, 0, numNames)
	for i := uint32(0); i < numNames; i++ {
		nameRVA := read32(img.Base + uintptr(namesRVA) + uintptr(i*4))
		name := readCString(img.Base + uintptr(nameRVA))
		ord := read16(img.Base + uintptr(ordsRVA) + uintptr(i*2))
		fnRVA := read32(img.Base + uintptr(funcsRVA) + uintptr(uint32(ord)*4))
		exports = append(exports, Export{Name: name, Addr: img.Base + uintptr(fnRVA)})
	}
	return exports, nil
}

func (systemCatalog) ImportSlot(img Image, symbol string) (uintptr, error) {
	importRVA, _, err := dataDirectory(img.Base, 1) // IMAGE_DIRECTORY_ENTRY_IMPORT
	if err != nil {
		return 0, err
	}
	if importRVA == 0 {
		return 0, fmt.Errorf("%w: %s has no import table", ErrNoImportSlot, img.Name)
	}

	// Walk the IMAGE_IMPORT_DESCRIPTOR array; it ends with an all-zero
	// descriptor.
	const descSize = 20
	for desc := img.Base + uintptr(importRVA); ; desc += descSize {
		origFirstThunk := read32(desc)
		firstThunk := read32(desc + 16)
		if origFirstThunk == 0 && firstThunk == 0 {
			break
		}

		// The INT keeps the names; the IAT at FirstThunk holds the
		// resolved pointers.
		nameTable := origFirstThunk
		if nameTable == 0 {
			nameTable = firstThunk
		}

		for i := uintptr(0); ; i++ {
			entry := read64(img.Base + uintptr(nameTable) + i*8)
			if entry == 0 {
				break
			}
			if entry&(1<<63) != 0 {
				// Imported by ordinal.
				continue
			}
			name := readCString(img.Base + uintptr(entry&0x7fffffff) + 2)
			if name == symbol {
				return img.Base + uintptr(firstThunk) + i*8, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrNoImportSlot, symbol, img.Name)
}

// dataDirectory returns the RVA and size of one optional-header data
// directory entry of a loaded module.
func dataDirectory(base uintptr, index int) (uint32, uint32, error) {
	if read16(base) != 0x5a4d { // "MZ"
		return 0, 0, fmt.Errorf("no DOS header at %#x", base)
	}
	peOff := read32(base + 0x3c)
	nt := base + uintptr(peOff)
	if read32(nt) != 0x4550 { // "PE\0\0"
		return 0, 0, fmt.Errorf("no PE header at %#x", nt)
	}

	opt := nt + 24
	var ddOff uintptr
	switch read16(opt) {
	case 0x10b: // PE32
		ddOff = 96
	case 0x20b: // PE32+
		ddOff = 112
	default:
		return 0, 0, fmt.Errorf("unknown optional header magic")
	}

	dd := opt + ddOff + uintptr(index*8)
	return read32(dd), read32(dd + 4), nil
}

func read16(addr uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(addr))
}

func read32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

func read64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

func readCString(addr uintptr) string {
	var sb strings.Builder
	for {
		c := *(*byte)(unsafe.Pointer(addr))
		if c == 0 {
			return sb.String()
		}
		sb.WriteByte(c)
		addr++
	}
}
