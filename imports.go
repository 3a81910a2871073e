package graft

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/grafthook/graft/internal/mem"
)

// ReplaceImportEntry rewrites the named image's indirection-table slot
// (GOT or IAT entry) for symbolName to point at replacement and returns
// the pointer the slot held before. Unlike a hook this redirects a data
// pointer, not instructions, so the original function stays reachable
// through the returned pointer with no trampoline involved.
func (e *Engine) ReplaceImportEntry(imageName, symbolName string, replacement uintptr) (uintptr, error) {
	if replacement == 0 {
		return 0, ErrBadAddress
	}
	if symbolName == "" {
		return 0, fmt.Errorf("%w: empty symbol name", ErrSymbolNotFound)
	}

	images, err := e.catalog.Images()
	if err != nil {
		return 0, fmt.Errorf("list images: %w", err)
	}

	var lastErr error
	matched := false
	for _, img := range images {
		if imageName != "" && !imageMatches(img, imageName) {
			continue
		}
		matched = true

		slot, err := e.catalog.ImportSlot(img, symbolName)
		if err != nil {
			lastErr = err
			continue
		}

		original := *(*uintptr)(unsafe.Pointer(slot))

		buf := make([]byte, unsafe.Sizeof(replacement))
		binary.NativeEndian.PutUint64(buf, uint64(replacement))
		if err := mem.Patch(slot, buf, mem.Data); err != nil {
			return 0, fmt.Errorf("patch import slot %#x: %w", slot, err)
		}

		e.log().Info("import entry replaced",
			zap.String("image", img.Name),
			zap.String("symbol", symbolName),
			zap.Uintptr("slot", slot),
			zap.Uintptr("original", original),
			zap.Uintptr("replacement", replacement))
		return original, nil
	}

	if imageName != "" && !matched {
		return 0, fmt.Errorf("%w: %s", ErrImageNotFound, imageName)
	}
	if lastErr != nil {
		return 0, lastErr
	}
	return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbolName)
}
