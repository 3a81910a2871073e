package graft

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/grafthook/graft/internal/arch"
	"github.com/grafthook/graft/internal/mem"
)

type hookState int

const (
	hookInstalled hookState = iota
	hookDestroyed
)

// Hook is an installed redirection from a target function to a
// replacement. It owns its trampoline allocation until Destroy.
type Hook struct {
	engine      *Engine
	target      uintptr
	replacement uintptr

	// The exact bytes the redirect overwrote.
	saved []byte

	tramp     []byte
	trampAddr uintptr

	state hookState
}

// Target returns the hooked function's address.
func (h *Hook) Target() uintptr { return h.target }

// Original returns the trampoline entry. Calling it runs the relocated
// prologue and falls through into the unhooked remainder of the target, so
// it behaves exactly like the pre-hook function.
func (h *Hook) Original() uintptr { return h.trampAddr }

// Destroy restores the target's original bytes and releases the
// trampoline. The hook cannot be reused afterwards.
func (h *Hook) Destroy() error {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return h.engine.destroyLocked(h)
}

// How many bytes are decoded at most while sizing the prologue. Redirects
// never need more than a handful of instructions.
const prologueScan = 64

// InstallHook redirects the function at target to replacement. On success
// the returned hook's Original method gives the address callers use to
// reach the pre-hook behavior. Every failure path leaves the target
// byte-identical to its state before the call.
func (e *Engine) InstallHook(target, replacement uintptr) (*Hook, error) {
	if target == 0 || replacement == 0 {
		return nil, ErrBadAddress
	}
	if e.rel == nil {
		return nil, arch.ErrUnsupported
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.hooks[target]; ok {
		return nil, fmt.Errorf("%w: %#x", ErrAlreadyHooked, target)
	}

	min := e.rel.RedirectLen(target, replacement)
	src, err := mem.ReadRange(target, prologueScan)
	if err != nil {
		return nil, fmt.Errorf("%w: %#x", ErrBadAddress, target)
	}

	tramp, trampAddr, consumed, err := e.buildTrampoline(src, target, min)
	if err != nil {
		return nil, err
	}

	saved := append([]byte(nil), src[:consumed]...)

	redirect := make([]byte, consumed)
	if err := e.rel.Redirect(redirect, target, replacement); err != nil {
		e.freeTrampoline(tramp)
		return nil, err
	}

	if err := mem.Patch(target, redirect, mem.Code); err != nil {
		// Nothing was written; the target is untouched.
		e.freeTrampoline(tramp)
		return nil, fmt.Errorf("patch target %#x: %w", target, err)
	}

	h := &Hook{
		engine:      e,
		target:      target,
		replacement: replacement,
		saved:       saved,
		tramp:       tramp,
		trampAddr:   trampAddr,
		state:       hookInstalled,
	}
	e.hooks[target] = h

	e.log().Info("hook installed",
		zap.Uintptr("target", target),
		zap.Uintptr("replacement", replacement),
		zap.Uintptr("original", trampAddr),
		zap.Int("prologue", consumed))
	return h, nil
}

// DestroyHook removes the installed hook at target.
func (e *Engine) DestroyHook(target uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.hooks[target]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrHookNotFound, target)
	}
	return e.destroyLocked(h)
}

func (e *Engine) destroyLocked(h *Hook) error {
	if h.state == hookDestroyed {
		return ErrHookDestroyed
	}

	if err := mem.Patch(h.target, h.saved, mem.Code); err != nil {
		// Restoration failed; keep the hook installed so the saved
		// bytes aren't lost.
		return fmt.Errorf("restore target %#x: %w", h.target, err)
	}

	e.freeTrampoline(h.tramp)
	h.tramp = nil
	h.state = hookDestroyed
	delete(e.hooks, h.target)

	e.log().Info("hook destroyed", zap.Uintptr("target", h.target))
	return nil
}
