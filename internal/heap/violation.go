package heap

import "fmt"

// ViolationKind identifies which member of the allocator's error taxonomy
// a Violation reports. None of them are recoverable: the engine either
// returns a valid pointer or it doesn't return at all.
type ViolationKind int

const (
	// OOM means the bump cursor would exceed the heap end.
	OOM ViolationKind = iota
	// Corruption means the back-link word at free time didn't resolve to
	// a descriptor with the expected magic (double-free, wild pointer,
	// or a buffer underrun into the back-link word).
	Corruption
	// Misuse means the caller violated a precondition the engine can
	// check cheaply before touching shared state (bad alignment, nil
	// pointer at free).
	Misuse
)

func (k ViolationKind) String() string {
	switch k {
	case OOM:
		return "oom"
	case Corruption:
		return "corruption"
	case Misuse:
		return "misuse"
	default:
		return "unknown"
	}
}

// Violation describes the condition that triggered a call to an
// OOMHandler. It carries enough context to log or report the failure
// before the handler halts the core.
type Violation struct {
	Kind    ViolationKind
	Op      string
	Address uintptr
	Size    uintptr
	Align   uintptr
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("allocator violation [%s] during %s: %s (addr=0x%x, size=%d, align=%d)",
		v.Kind, v.Op, v.Message, v.Address, v.Size, v.Align)
}

// OOMHandler is the externally-supplied, non-returning collaborator the
// engine calls on cursor exhaustion or invariant violation. Its contract
// mirrors a bare-metal alloc-error handler: it halts the current core and
// never returns control to the caller that triggered it. The canonical
// implementation (internal/oom.HaltHandler) parks the goroutine forever;
// tests substitute a handler that panics with a recognizable sentinel so
// the violation path is observable without hanging the test binary.
type OOMHandler interface {
	Halt(v Violation)
}
