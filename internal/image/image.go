// Package image enumerates the images loaded into the current process and
// their exported symbols. It backs symbol resolution and import-table
// patching; all lookups are best-effort snapshots, images may be loaded or
// unloaded concurrently by the host process.
package image

import "errors"

var (
	// ErrImageNotFound means no loaded image matched the requested name.
	ErrImageNotFound = errors.New("image not found")
	// ErrSymbolNotFound means the image does not export the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrNoImportSlot means the image has no indirection-table slot for
	// the symbol.
	ErrNoImportSlot = errors.New("no import slot for symbol")
	// ErrUnsupported means the catalog cannot provide the operation on
	// this platform.
	ErrUnsupported = errors.New("not supported on this platform")
)

// Image is one loaded module.
type Image struct {
	// Name is the base name of the image, e.g. "libc.so.6".
	Name string
	// Path is the filesystem path the image was loaded from.
	Path string
	// Base is the load address.
	Base uintptr
}

// Export is one exported symbol of an image.
type Export struct {
	Name string
	Addr uintptr
}

// Catalog is the host-platform capability consumed by symbol resolution
// and import patching.
type Catalog interface {
	// Images lists the currently loaded images.
	Images() ([]Image, error)

	// Exports lists the exported symbols of an image with resolved
	// addresses.
	Exports(img Image) ([]Export, error)

	// ImportSlot returns the address of the image's indirection-table
	// slot (GOT or IAT entry) for an imported symbol.
	ImportSlot(img Image, symbol string) (uintptr, error)
}

// System returns the catalog for the running platform.
func System() Catalog {
	return systemCatalog{}
}
