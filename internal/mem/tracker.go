package mem

import (
	"os"
	"sync"
)

// Tracker reference-counts protection changes per page. Hooks on the same
// code page may patch concurrently; the page only drops back to its
// original protection once the last patch on it finishes.
type Tracker struct {
	mu    sync.Mutex
	pages map[uintptr]*pageState
}

type pageState struct {
	refs    int
	restore Prot
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pages: make(map[uintptr]*pageState)}
}

// Acquire makes every page covering n bytes at addr writable with
// protection want. fallback is the protection restored on Release when the
// platform could not report the previous value. Acquire is undone page by
// page if any page fails, leaving no protection changed.
func (t *Tracker) Acquire(addr uintptr, n int, want, fallback Prot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pageSize := uintptr(os.Getpagesize())
	start, size := PageRange(addr, n)

	var done []uintptr
	for page := start; page < start+uintptr(size); page += pageSize {
		if err := t.acquirePage(page, int(pageSize), want, fallback); err != nil {
			for _, p := range done {
				t.releasePage(p, int(pageSize))
			}
			return err
		}
		done = append(done, page)
	}
	return nil
}

// Release drops one reference for every page covering n bytes at addr and
// restores the saved protection for pages that reach zero.
func (t *Tracker) Release(addr uintptr, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pageSize := uintptr(os.Getpagesize())
	start, size := PageRange(addr, n)

	var firstErr error
	for page := start; page < start+uintptr(size); page += pageSize {
		if err := t.releasePage(page, int(pageSize)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Tracker) acquirePage(page uintptr, size int, want, fallback Prot) error {
	if st, ok := t.pages[page]; ok {
		st.refs++
		return nil
	}

	old, known, err := setProtect(page, size, want)
	if err != nil {
		return err
	}
	if !known {
		old = fallback
	}
	t.pages[page] = &pageState{refs: 1, restore: old}
	return nil
}

func (t *Tracker) releasePage(page uintptr, size int) error {
	st, ok := t.pages[page]
	if !ok {
		return nil
	}
	st.refs--
	if st.refs > 0 {
		return nil
	}
	delete(t.pages, page)
	_, _, err := setProtect(page, size, st.restore)
	return err
}
