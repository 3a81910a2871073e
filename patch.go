package graft

import (
	"errors"

	"go.uber.org/zap"

	"github.com/grafthook/graft/internal/mem"
)

// PatchCode overwrites len(data) bytes of executable memory at addr,
// transiently making the containing pages writable. The pages return to
// their prior protection before PatchCode returns. The write is verbatim;
// nothing around the patched bytes is disturbed.
func (e *Engine) PatchCode(addr uintptr, data []byte) Status {
	err := mem.Patch(addr, data, mem.Code)
	if err == nil {
		e.log().Debug("code patched", zap.Uintptr("addr", addr), zap.Int("len", len(data)))
		return Success
	}

	e.log().Warn("code patch failed", zap.Uintptr("addr", addr), zap.Error(err))
	switch {
	case errors.Is(err, mem.ErrUnmapped):
		return StatusNone
	case errors.Is(err, mem.ErrCrossesUnmapped):
		return InsufficientSpace
	case errors.Is(err, mem.ErrProtect):
		// The platform refused to make executable memory writable.
		return ExecAllocUnsupported
	default:
		return OperationError
	}
}
