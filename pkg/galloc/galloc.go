// Package galloc is the thin outer adapter presenting internal/heap as a
// process-wide global heap: it forwards allocate, deallocate, and
// allocate-zeroed — the Go analogue of a `GlobalAlloc` trait
// implementation — plus page-aligned allocation.
package galloc

import (
	"unsafe"

	"github.com/ruspigo/allocator/internal/heap"
)

// GlobalAllocator installs an *heap.Engine as the sole heap source for a
// binary. It owns no state of its own beyond the engine it forwards to —
// it is thin glue, not part of the core engineering.
type GlobalAllocator struct {
	engine *heap.Engine
}

// New creates a GlobalAllocator backed by a freshly managed size-byte
// region, reporting allocator violations to handler.
func New(size uintptr, handler heap.OOMHandler, diag *heap.Diagnostics) *GlobalAllocator {
	return &GlobalAllocator{engine: heap.NewEngine(size, handler, diag)}
}

// Allocate forwards to the engine's Alloc entry point.
func (g *GlobalAllocator) Allocate(size, align uintptr) uintptr {
	return g.engine.Alloc(size, align)
}

// Deallocate forwards to the engine's Free entry point.
func (g *GlobalAllocator) Deallocate(ptr uintptr) {
	g.engine.Free(ptr)
}

// AllocatePage forwards to the engine's AllocPage entry point.
func (g *GlobalAllocator) AllocatePage(n, pageSize uintptr) uintptr {
	return g.engine.AllocPage(n, pageSize)
}

// AllocateZeroed allocates size bytes aligned to align and zero-fills the
// payload before returning it, the Go equivalent of an allocate call
// followed by a memset(ptr, 0, size). With no C memset to link against in
// a pure-Go module, the `clear` builtin is the idiomatic native
// substitute (see DESIGN.md).
func (g *GlobalAllocator) AllocateZeroed(size, align uintptr) uintptr {
	ptr := g.engine.Alloc(size, align)
	Zero(ptr, size)
	return ptr
}

// Engine exposes the underlying engine for callers that need Stats or
// direct access beyond the adapter operations.
func (g *GlobalAllocator) Engine() *heap.Engine { return g.engine }

// Zero fills size bytes starting at ptr with zero. It is the `memset`
// link-dependency a freestanding build would consume as an external
// symbol.
func Zero(ptr, size uintptr) {
	if size == 0 {
		return
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
	clear(b)
}
