package graft

import (
	"fmt"

	"github.com/grafthook/graft/internal/mem"
)

// Trampolines are fixed-size blocks: a relocated prologue plus the jump
// back never comes close to this on either architecture.
const trampolineSize = 128

// buildTrampoline relocates the target's leading instructions into a fresh
// executable block and appends a jump back into the original body. It
// returns the block, its address and how many source bytes the redirect
// may overwrite.
func (e *Engine) buildTrampoline(src []byte, target uintptr, min int) ([]byte, uintptr, int, error) {
	if err := e.arena.BeginMutate(); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrExecAlloc, err)
	}
	defer e.arena.EndMutate()

	block, err := e.arena.Allocate(trampolineSize)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrExecAlloc, err)
	}
	addr := mem.Addr(block)

	_, consumed, err := e.rel.Trampoline(block, addr, src, target, min)
	if err != nil {
		e.arena.Free(block)
		return nil, 0, 0, fmt.Errorf("trampoline for %#x: %w", target, err)
	}
	mem.CacheFlush(block)

	return block, addr, consumed, nil
}

func (e *Engine) freeTrampoline(block []byte) {
	if block == nil {
		return
	}
	if err := e.arena.BeginMutate(); err != nil {
		return
	}
	e.arena.Free(block)
	e.arena.EndMutate()
}
