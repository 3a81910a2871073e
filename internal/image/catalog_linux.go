package image

import (
	"bufio"
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type systemCatalog struct{}

func (systemCatalog) Images() ([]Image, error) {
	data, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	return parseMaps(data), nil
}

// parseMaps extracts the loaded images from /proc/self/maps content. The
// base of an image is the lowest address it is mapped at.
func parseMaps(data []byte) []Image {
	seen := make(map[string]int)
	var images []Image

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := fields[5]
		if !strings.HasPrefix(path, "/") {
			// [heap], [vdso], anonymous mappings.
			continue
		}

		lo, _, found := strings.Cut(fields[0], "-")
		if !found {
			continue
		}
		start, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			continue
		}

		if i, ok := seen[path]; ok {
			if uintptr(start) < images[i].Base {
				images[i].Base = uintptr(start)
			}
			continue
		}
		seen[path] = len(images)
		images = append(images, Image{
			Name: filepath.Base(path),
			Path: path,
			Base: uintptr(start),
		})
	}
	return images
}

func (systemCatalog) Exports(img Image) ([]Export, error) {
	f, err := elf.Open(img.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", img.Path, err)
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		// Static binaries have no dynamic symbols; fall back to the
		// regular symbol table.
		syms, err = f.Symbols()
		if err != nil {
			return nil, fmt.Errorf("symbols of %s: %w", img.Path, err)
		}
	}

	bias := loadBias(f, img)
	exports := make([]Export, 0, len(syms))
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		exports = append(exports, Export{Name: s.Name, Addr: bias + uintptr(s.Value)})
	}
	return exports, nil
}

func (systemCatalog) ImportSlot(img Image, symbol string) (uintptr, error) {
	f, err := elf.Open(img.Path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", img.Path, err)
	}
	defer f.Close()

	dynsyms, err := f.DynamicSymbols()
	if err != nil {
		return 0, fmt.Errorf("dynamic symbols of %s: %w", img.Path, err)
	}

	jumpSlot, globDat, err := relocTypes(f.Machine)
	if err != nil {
		return 0, err
	}

	bias := loadBias(f, img)
	for _, name := range []string{".rela.plt", ".rela.dyn"} {
		sec := f.Section(name)
		if sec == nil {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return 0, fmt.Errorf("read %s of %s: %w", name, img.Path, err)
		}

		off, ok := findRelaSlot(data, f.ByteOrder, dynsyms, symbol, jumpSlot, globDat)
		if ok {
			return bias + uintptr(off), nil
		}
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrNoImportSlot, symbol, img.Name)
}

// findRelaSlot scans raw Rela64 entries for a jump-slot or GOT-data
// relocation against the named symbol and returns its r_offset.
func findRelaSlot(data []byte, order binary.ByteOrder, dynsyms []elf.Symbol, symbol string, jumpSlot, globDat uint32) (uint64, bool) {
	const relaSize = 24
	for i := 0; i+relaSize <= len(data); i += relaSize {
		off := order.Uint64(data[i:])
		info := order.Uint64(data[i+8:])

		typ := uint32(elf.R_TYPE64(info))
		if typ != jumpSlot && typ != globDat {
			continue
		}

		// DynamicSymbols drops the null symbol at index 0, so
		// relocation symbol index n is dynsyms[n-1].
		sym := elf.R_SYM64(info)
		if sym == 0 || int(sym) > len(dynsyms) {
			continue
		}
		if dynsyms[sym-1].Name == symbol {
			return off, true
		}
	}
	return 0, false
}

func relocTypes(m elf.Machine) (jumpSlot, globDat uint32, err error) {
	switch m {
	case elf.EM_X86_64:
		return uint32(elf.R_X86_64_JMP_SLOT), uint32(elf.R_X86_64_GLOB_DAT), nil
	case elf.EM_AARCH64:
		return uint32(elf.R_AARCH64_JUMP_SLOT), uint32(elf.R_AARCH64_GLOB_DAT), nil
	default:
		return 0, 0, fmt.Errorf("%w: relocations for machine %v", ErrUnsupported, m)
	}
}

// loadBias returns the value to add to file addresses. Position-independent
// images are biased by their load base, fixed-address executables are not.
func loadBias(f *elf.File, img Image) uintptr {
	if f.Type == elf.ET_DYN {
		return img.Base
	}
	return 0
}
