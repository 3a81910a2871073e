package mem

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// mapHole maps two pages and unmaps the second, returning the surviving
// page. Its mapping is guaranteed to end at a hole.
func mapHole(t *testing.T) []byte {
	t.Helper()

	pageSize := os.Getpagesize()
	buf, err := unix.Mmap(-1, 0, 2*pageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	require.NoError(t, unix.MunmapPtr(unsafe.Pointer(&buf[pageSize]), uintptr(pageSize)))
	t.Cleanup(func() { _ = unix.MunmapPtr(unsafe.Pointer(&buf[0]), uintptr(pageSize)) })
	return buf[:pageSize]
}

func TestQueryProt(t *testing.T) {
	buf := mapHole(t)

	p, ok := queryProt(Addr(buf))
	require.True(t, ok)
	assert.Equal(t, ProtRW, p)

	_, ok = queryProt(Addr(buf) + uintptr(len(buf)))
	assert.False(t, ok, "the hole after the mapping has no protection")
}

func TestCheckMapped(t *testing.T) {
	buf := mapHole(t)
	addr := Addr(buf)
	end := addr + uintptr(len(buf))

	assert.NoError(t, checkMapped(addr, 16))
	assert.NoError(t, checkMapped(end-16, 16))
	assert.ErrorIs(t, checkMapped(end-2, 4), ErrCrossesUnmapped)
	assert.ErrorIs(t, checkMapped(end, 1), ErrUnmapped)
}

func TestMappedLen(t *testing.T) {
	buf := mapHole(t)
	addr := Addr(buf)
	end := addr + uintptr(len(buf))

	n, err := mappedLen(addr, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	n, err = mappedLen(end-2, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "reads clamp at the end of the mapping")

	_, err = mappedLen(end, 64)
	assert.ErrorIs(t, err, ErrUnmapped)
}

func TestFindMapping(t *testing.T) {
	maps := []byte(`1000-2000 rw-p 00000000 00:00 0
3000-4000 r-xp 00000000 08:01 131 /usr/bin/demo
`)

	start, end, perms, ok := findMapping(maps, 0x1800)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x1000), start)
	assert.Equal(t, uintptr(0x2000), end)
	assert.Equal(t, "rw-p", perms)

	_, _, perms, ok = findMapping(maps, 0x3000)
	require.True(t, ok)
	assert.Equal(t, "r-xp", perms)

	_, _, _, ok = findMapping(maps, 0x2800)
	assert.False(t, ok)
}

func TestPatch_RestoresProtection(t *testing.T) {
	buf := mapHole(t)
	addr := Addr(buf)

	before, ok := queryProt(addr)
	require.True(t, ok)

	require.NoError(t, Patch(addr+8, []byte{0xde, 0xad}, Code))
	assert.Equal(t, []byte{0xde, 0xad}, buf[8:10])

	after, ok := queryProt(addr)
	require.True(t, ok)
	assert.Equal(t, before, after, "patching must restore the page protection")
}
