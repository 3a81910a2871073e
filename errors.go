package graft

import "errors"

var (
	// ErrAlreadyHooked means an installed hook already exists for the target.
	ErrAlreadyHooked = errors.New("target already hooked")
	// ErrHookNotFound means no installed hook exists for the target.
	ErrHookNotFound = errors.New("hook not found")
	// ErrHookDestroyed means the handle references a destroyed hook.
	ErrHookDestroyed = errors.New("hook already destroyed")
	// ErrBadAddress means a zero or otherwise unusable address was supplied.
	ErrBadAddress = errors.New("bad address")
	// ErrSymbolNotFound means no loaded image exports the requested symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrImageNotFound means no loaded image matches the requested name.
	ErrImageNotFound = errors.New("image not found")
	// ErrExecAlloc means executable memory could not be allocated or made
	// writable on this platform.
	ErrExecAlloc = errors.New("executable allocation unsupported")
	// ErrInsufficientSpace means a patch would cross an unmapped boundary.
	ErrInsufficientSpace = errors.New("insufficient space")
	// ErrNotFound means the address does not resolve to mapped memory.
	ErrNotFound = errors.New("address not mapped")
	// ErrOperation means a write or protection change failed.
	ErrOperation = errors.New("memory operation failed")
)
