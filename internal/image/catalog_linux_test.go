package image

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mapsFixture = `55d5a0000000-55d5a0010000 r--p 00000000 08:01 131 /usr/bin/demo
55d5a0010000-55d5a0080000 r-xp 00010000 08:01 131 /usr/bin/demo
55d5a0080000-55d5a00a0000 rw-p 00080000 08:01 131 /usr/bin/demo
7f2e40000000-7f2e40021000 rw-p 00000000 00:00 0
7f2e41000000-7f2e41028000 r--p 00000000 08:01 270 /usr/lib/libc.so.6
7f2e41028000-7f2e411b0000 r-xp 00028000 08:01 270 /usr/lib/libc.so.6
7ffd30000000-7ffd30021000 rw-p 00000000 00:00 0 [stack]
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0 [vsyscall]
`

func TestParseMaps(t *testing.T) {
	images := parseMaps([]byte(mapsFixture))
	require.Len(t, images, 2)

	assert.Equal(t, Image{
		Name: "demo",
		Path: "/usr/bin/demo",
		Base: 0x55d5a0000000,
	}, images[0])

	assert.Equal(t, Image{
		Name: "libc.so.6",
		Path: "/usr/lib/libc.so.6",
		Base: 0x7f2e41000000,
	}, images[1])
}

func TestParseMaps_BaseIsLowestMapping(t *testing.T) {
	// Segments out of address order still yield the lowest base.
	fixture := `7f2e41028000-7f2e411b0000 r-xp 00028000 08:01 270 /usr/lib/libm.so.6
7f2e41000000-7f2e41028000 r--p 00000000 08:01 270 /usr/lib/libm.so.6
`
	images := parseMaps([]byte(fixture))
	require.Len(t, images, 1)
	assert.Equal(t, uintptr(0x7f2e41000000), images[0].Base)
}

func TestParseMaps_Malformed(t *testing.T) {
	fixture := `garbage
7f2e41000000 r--p 00000000 08:01 270 /usr/lib/libc.so.6
`
	assert.Empty(t, parseMaps([]byte(fixture)))
}

func relaEntry(off, info uint64) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf, off)
	binary.LittleEndian.PutUint64(buf[8:], info)
	return buf
}

func TestFindRelaSlot(t *testing.T) {
	jumpSlot := uint32(elf.R_X86_64_JMP_SLOT)
	globDat := uint32(elf.R_X86_64_GLOB_DAT)
	dynsyms := []elf.Symbol{{Name: "malloc"}, {Name: "free"}}

	data := append(
		relaEntry(0x4010, 2<<32|uint64(globDat)),  // free, GLOB_DAT
		relaEntry(0x4018, 1<<32|uint64(jumpSlot))..., // malloc, JMP_SLOT
	)

	off, ok := findRelaSlot(data, binary.LittleEndian, dynsyms, "malloc", jumpSlot, globDat)
	require.True(t, ok)
	assert.Equal(t, uint64(0x4018), off)

	off, ok = findRelaSlot(data, binary.LittleEndian, dynsyms, "free", jumpSlot, globDat)
	require.True(t, ok)
	assert.Equal(t, uint64(0x4010), off)

	_, ok = findRelaSlot(data, binary.LittleEndian, dynsyms, "calloc", jumpSlot, globDat)
	assert.False(t, ok)
}

func TestFindRelaSlot_SkipsOtherRelocations(t *testing.T) {
	jumpSlot := uint32(elf.R_X86_64_JMP_SLOT)
	globDat := uint32(elf.R_X86_64_GLOB_DAT)
	dynsyms := []elf.Symbol{{Name: "malloc"}}

	// RELATIVE relocation against the same symbol index must not match.
	data := relaEntry(0x4000, 1<<32|uint64(elf.R_X86_64_RELATIVE))

	_, ok := findRelaSlot(data, binary.LittleEndian, dynsyms, "malloc", jumpSlot, globDat)
	assert.False(t, ok)
}

func TestFindRelaSlot_BadSymbolIndex(t *testing.T) {
	jumpSlot := uint32(elf.R_X86_64_JMP_SLOT)
	dynsyms := []elf.Symbol{{Name: "malloc"}}

	data := append(
		relaEntry(0x4000, 0<<32|uint64(jumpSlot)), // null symbol
		relaEntry(0x4008, 9<<32|uint64(jumpSlot))..., // out of range
	)

	_, ok := findRelaSlot(data, binary.LittleEndian, dynsyms, "malloc", jumpSlot, 0)
	assert.False(t, ok)
}

func TestRelocTypes(t *testing.T) {
	jump, glob, err := relocTypes(elf.EM_X86_64)
	require.NoError(t, err)
	assert.Equal(t, uint32(elf.R_X86_64_JMP_SLOT), jump)
	assert.Equal(t, uint32(elf.R_X86_64_GLOB_DAT), glob)

	jump, glob, err = relocTypes(elf.EM_AARCH64)
	require.NoError(t, err)
	assert.Equal(t, uint32(elf.R_AARCH64_JUMP_SLOT), jump)
	assert.Equal(t, uint32(elf.R_AARCH64_GLOB_DAT), glob)

	_, _, err = relocTypes(elf.EM_RISCV)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSystemCatalog_Images(t *testing.T) {
	images, err := System().Images()
	require.NoError(t, err)
	require.NotEmpty(t, images)

	// The test binary itself must be present.
	for _, img := range images {
		assert.NotEmpty(t, img.Name)
		assert.NotZero(t, img.Base)
	}
}
