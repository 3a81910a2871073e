package mem

import (
	"fmt"
	"sync"

	"github.com/pboyd/malloc"
)

const arenaStartSize = 64 * 1024

// Arena hands out executable memory for trampolines. It wraps an
// mmap-backed malloc arena that stays read/execute-only except inside a
// BeginMutate/EndMutate window, and counts live allocations so leaked
// trampolines are auditable.
type Arena struct {
	arena    *malloc.Arena
	mprotect func(int) error
	mu       sync.Mutex
	initOnce sync.Once
	mutable  bool
	live     int
}

// NewArena returns an empty arena. The backing mapping is created on the
// first allocation.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) init(startSize int) error {
	var err error
	a.initOnce.Do(func() {
		if startSize < arenaStartSize {
			startSize = arenaStartSize
		}

		be := malloc.MmapBackend(malloc.MmapProt(arenaProtExec), malloc.MmapFlags(mapFlags))
		if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
			a.mprotect = protBE.Protect
		} else {
			a.mprotect = func(int) error {
				return nil
			}
		}

		a.arena = malloc.NewArena(uint64(startSize), malloc.Backend(be))
		if a.arena == nil {
			err = fmt.Errorf("%w: unable to initialize arena", ErrExecAlloc)
			return
		}
		a.mutable = true
	})
	return err
}

// BeginMutate makes the arena writable. Allocate and Free may only be
// called between BeginMutate and EndMutate.
func (a *Arena) BeginMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// BeginMutate can be called before the initial allocation.
	if a.mprotect == nil || a.mutable {
		return nil
	}

	err := a.mprotect(arenaProtRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

// EndMutate returns the arena to read/execute-only.
func (a *Arena) EndMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mutable {
		return nil
	}

	err := a.mprotect(arenaProtRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

// Allocate reserves size bytes of executable memory.
func (a *Arena) Allocate(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.init(size)
	if err != nil {
		return nil, err
	}

	if !a.mutable {
		panic("Allocate called in immutable state")
	}

	buf, err := malloc.MallocSlice[byte](a.arena, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecAlloc, err)
	}
	a.live++
	return buf, nil
}

// Free releases an allocation made by Allocate.
func (a *Arena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mutable {
		panic("Free called in immutable state")
	}

	malloc.FreeSlice(a.arena, buf)
	a.live--
}

// Live reports the number of outstanding allocations.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
