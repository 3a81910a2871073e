package graft

import (
	"reflect"
	"unsafe"
)

// funcval mirrors the runtime's func value layout: a func is a pointer to
// this struct.
type funcval struct {
	fn uintptr
}

// MakeFunc wraps a raw code address in a callable Go func value of type T.
// It exists so callers can invoke a hook's original-call address:
//
//	h, _ := graft.InstallHook(target, replacement)
//	original := graft.MakeFunc[func(int, int) int](h.Original())
//	sum := original(2, 3)
//
// T must be a function type matching the target's signature and calling
// convention. MakeFunc panics if T is not a function type.
func MakeFunc[T any](addr uintptr) T {
	var zero T
	if reflect.TypeOf(zero).Kind() != reflect.Func {
		panic("graft: MakeFunc type parameter must be a function type")
	}

	fv := &funcval{fn: addr}
	return *(*T)(unsafe.Pointer(&fv))
}

// FuncAddr returns the entry point of a Go function value, suitable as an
// InstallHook target or replacement.
func FuncAddr(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return 0
	}
	return v.Pointer()
}
