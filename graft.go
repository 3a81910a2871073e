package graft

// The package-level functions operate on the default engine, constructed
// on first use.

// InstallHook redirects the function at target to replacement and returns
// the hook handle. See Engine.InstallHook.
func InstallHook(target, replacement uintptr) (*Hook, error) {
	return Default().InstallHook(target, replacement)
}

// DestroyHook removes the installed hook at target and restores the
// original bytes. See Engine.DestroyHook.
func DestroyHook(target uintptr) error {
	return Default().DestroyHook(target)
}

// ResolveSymbol looks up an exported symbol among the loaded images. See
// Engine.ResolveSymbol.
func ResolveSymbol(imageName, symbolName string) (uintptr, error) {
	return Default().ResolveSymbol(imageName, symbolName)
}

// ReplaceImportEntry redirects an image's import-table slot. See
// Engine.ReplaceImportEntry.
func ReplaceImportEntry(imageName, symbolName string, replacement uintptr) (uintptr, error) {
	return Default().ReplaceImportEntry(imageName, symbolName, replacement)
}

// PatchCode overwrites raw bytes at addr. See Engine.PatchCode.
func PatchCode(addr uintptr, data []byte) Status {
	return Default().PatchCode(addr, data)
}
