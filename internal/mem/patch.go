package mem

var defaultTracker = NewTracker()

// Patch writes data verbatim at addr, transiently raising page protection
// through the shared tracker. The pages return to their previous protection
// before Patch returns unless another patch on the same page is still in
// flight.
func Patch(addr uintptr, data []byte, kind Kind) error {
	return PatchTracked(defaultTracker, addr, data, kind)
}

// PatchTracked is Patch with an explicit tracker, for tests.
func PatchTracked(t *Tracker, addr uintptr, data []byte, kind Kind) error {
	if addr == 0 {
		return ErrUnmapped
	}
	if len(data) == 0 {
		return nil
	}
	if err := checkMapped(addr, len(data)); err != nil {
		return err
	}

	if err := t.Acquire(addr, len(data), kind.writable(), kind.restore()); err != nil {
		return err
	}
	copy(Slice(addr, len(data)), data)
	if kind == Code {
		CacheFlush(Slice(addr, len(data)))
	}
	return t.Release(addr, len(data))
}
