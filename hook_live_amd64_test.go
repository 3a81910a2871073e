package graft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafthook/graft/internal/mem"
)

// The live tests hook real functions in this binary and execute them. The
// targets carry noinline directives and do enough work that their bodies
// are longer than the redirect jump.

//go:noinline
func liveAdd(a, b int) int {
	return a*3 + b*2 - a*2 - b
}

var liveAddHook *Hook

func liveAddReplacement(a, b int) int {
	original := MakeFunc[func(int, int) int](liveAddHook.Original())
	return original(a, b) * 2
}

func TestLiveHook_DispatchAndOriginal(t *testing.T) {
	require.Equal(t, 5, liveAdd(2, 3))

	var err error
	liveAddHook, err = InstallHook(FuncAddr(liveAdd), FuncAddr(liveAddReplacement))
	require.NoError(t, err)
	defer func() {
		if liveAddHook != nil {
			_ = liveAddHook.Destroy()
		}
	}()

	// The replacement delegates to the trampoline and doubles the result.
	assert.Equal(t, 10, liveAdd(2, 3))
	assert.Equal(t, 22, liveAdd(4, 7))

	require.NoError(t, liveAddHook.Destroy())
	liveAddHook = nil

	assert.Equal(t, 5, liveAdd(2, 3), "destroyed hook runs the unmodified original")
}

//go:noinline
func liveGreet(name string) string {
	return "hello " + name
}

func liveGreetReplacement(name string) string {
	return "hooked " + name
}

func TestLiveHook_ReplacementOnly(t *testing.T) {
	h, err := InstallHook(FuncAddr(liveGreet), FuncAddr(liveGreetReplacement))
	require.NoError(t, err)
	defer func() { _ = h.Destroy() }()

	assert.Equal(t, "hooked world", liveGreet("world"))
}

//go:noinline
func liveCounter(n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += i
	}
	return sum
}

func TestLiveHook_ByteExactRestore(t *testing.T) {
	target := FuncAddr(liveCounter)
	before := mem.ReadAt(target, 32)

	h, err := InstallHook(target, FuncAddr(liveGreetReplacement))
	require.NoError(t, err)

	require.NoError(t, h.Destroy())
	assert.Equal(t, before, mem.ReadAt(target, 32))
	assert.Equal(t, 10, liveCounter(5))
}
