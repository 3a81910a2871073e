package graft

// Status reports the outcome of a raw memory patch operation.
type Status int

const (
	// Success means the bytes were written and protection restored.
	Success Status = iota
	// OperationError means the write or a protection change failed.
	OperationError
	// ExecAllocUnsupported means the platform refused a
	// writable-then-executable transition for the affected pages.
	ExecAllocUnsupported
	// InsufficientSpace means the buffer would cross into unmapped memory.
	InsufficientSpace
	// StatusNone means the address does not resolve to mapped memory.
	StatusNone
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case OperationError:
		return "operation error"
	case ExecAllocUnsupported:
		return "executable allocation unsupported"
	case InsufficientSpace:
		return "insufficient space"
	case StatusNone:
		return "none"
	default:
		return "unknown status"
	}
}

// Err returns nil for Success and a matching sentinel error otherwise.
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case ExecAllocUnsupported:
		return ErrExecAlloc
	case InsufficientSpace:
		return ErrInsufficientSpace
	case StatusNone:
		return ErrNotFound
	default:
		return ErrOperation
	}
}
