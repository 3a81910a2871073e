package graft

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/grafthook/graft/internal/mem"
)

func TestPatchCode_UnmappedAddress(t *testing.T) {
	page, err := unix.Mmap(-1, 0, os.Getpagesize(),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	addr := mem.Addr(page)
	require.NoError(t, unix.Munmap(page))

	e := NewEngine()
	assert.Equal(t, StatusNone, e.PatchCode(addr, []byte{0x90}))
}

func TestPatchCode_CrossesUnmappedBoundary(t *testing.T) {
	pageSize := os.Getpagesize()

	buf, err := unix.Mmap(-1, 0, 2*pageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	require.NoError(t, unix.MunmapPtr(unsafe.Pointer(&buf[pageSize]), uintptr(pageSize)))
	t.Cleanup(func() { _ = unix.MunmapPtr(unsafe.Pointer(&buf[0]), uintptr(pageSize)) })

	addr := mem.Addr(buf) + uintptr(pageSize) - 2

	e := NewEngine()
	assert.Equal(t, InsufficientSpace, e.PatchCode(addr, []byte{1, 2, 3, 4}))

	assert.Equal(t, []byte{0, 0}, buf[pageSize-2:pageSize],
		"a rejected patch must not write anything")
}
