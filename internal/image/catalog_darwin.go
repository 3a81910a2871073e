package image

import (
	"debug/macho"
	"fmt"
	"os"
	"path/filepath"
)

// Without cgo there is no dyld API to walk every loaded image, so the
// darwin catalog covers the main executable only. Symbol addresses come
// from the Mach-O symbol table and do not include the ASLR slide.
type systemCatalog struct{}

func (systemCatalog) Images() ([]Image, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return []Image{{
		Name: filepath.Base(path),
		Path: path,
	}}, nil
}

func (systemCatalog) Exports(img Image) ([]Export, error) {
	f, err := macho.Open(img.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", img.Path, err)
	}
	defer f.Close()

	if f.Symtab == nil {
		return nil, fmt.Errorf("no symbol table in %s", img.Path)
	}

	exports := make([]Export, 0, len(f.Symtab.Syms))
	for _, s := range f.Symtab.Syms {
		if s.Name == "" || s.Sect == 0 {
			continue
		}
		exports = append(exports, Export{Name: s.Name, Addr: img.Base + uintptr(s.Value)})
	}
	return exports, nil
}

func (systemCatalog) ImportSlot(img Image, symbol string) (uintptr, error) {
	// Rewriting __la_symbol_ptr needs the dyld bind opcode stream, which
	// this catalog does not parse.
	return 0, fmt.Errorf("%w: import slots on darwin", ErrUnsupported)
}
