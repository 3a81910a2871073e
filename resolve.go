package graft

import (
	"fmt"
	"strings"

	"github.com/grafthook/graft/internal/image"
)

// ResolveSymbol scans the export table of the named loaded image for an
// exact symbol match and returns its address. An empty imageName scans
// every loaded image. The lookup is uncached and read-only; a resolution
// racing a module unload may miss or return a stale address, so callers
// should use the result immediately rather than retain it.
func (e *Engine) ResolveSymbol(imageName, symbolName string) (uintptr, error) {
	if symbolName == "" {
		return 0, fmt.Errorf("%w: empty symbol name", ErrSymbolNotFound)
	}

	images, err := e.catalog.Images()
	if err != nil {
		return 0, fmt.Errorf("list images: %w", err)
	}

	matched := false
	for _, img := range images {
		if imageName != "" && !imageMatches(img, imageName) {
			continue
		}
		matched = true

		exports, err := e.catalog.Exports(img)
		if err != nil {
			// The image may have been unloaded mid-scan.
			continue
		}
		for _, exp := range exports {
			if exp.Name == symbolName {
				return exp.Addr, nil
			}
		}
	}

	if imageName != "" && !matched {
		return 0, fmt.Errorf("%w: %s", ErrImageNotFound, imageName)
	}
	return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbolName)
}

// imageMatches accepts the full path, the base name, or a base-name prefix
// so "libc" finds "libc.so.6".
func imageMatches(img image.Image, name string) bool {
	return img.Name == name || img.Path == name || strings.HasPrefix(img.Name, name+".")
}
