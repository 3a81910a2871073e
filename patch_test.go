package graft

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grafthook/graft/internal/mem"
)

func TestPatchCode(t *testing.T) {
	e := NewEngine()

	buf := make([]byte, 32)
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	status := e.PatchCode(mem.Addr(buf)+8, data)
	assert.Equal(t, Success, status)
	assert.Equal(t, data, buf[8:12], "a readback returns exactly the patched bytes")
	assert.Equal(t, make([]byte, 8), buf[:8], "bytes before the patch are untouched")
	assert.Equal(t, make([]byte, 20), buf[12:], "bytes after the patch are untouched")
}

func TestPatchCode_NilAddress(t *testing.T) {
	e := NewEngine()

	status := e.PatchCode(0, []byte{0x90})
	assert.Equal(t, StatusNone, status)
}

func TestPatchCode_Empty(t *testing.T) {
	e := NewEngine()

	buf := make([]byte, 8)
	status := e.PatchCode(mem.Addr(buf), nil)
	assert.Equal(t, Success, status)
}

func TestStatusValues(t *testing.T) {
	assert.NoError(t, Success.Err())
	assert.ErrorIs(t, ExecAllocUnsupported.Err(), ErrExecAlloc)
	assert.ErrorIs(t, InsufficientSpace.Err(), ErrInsufficientSpace)
	assert.ErrorIs(t, StatusNone.Err(), ErrNotFound)
	assert.ErrorIs(t, OperationError.Err(), ErrOperation)

	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "none", StatusNone.String())
	assert.Equal(t, "unknown status", Status(99).String())
}
