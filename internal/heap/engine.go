package heap

// Engine composes an Arena and a BucketTable into the allocator entry
// points: Alloc, Free, and AllocPage. It holds no mutex — every operation
// is either a bounded sequence of atomic load/store/CAS steps or a call
// into the non-returning OOMHandler.
type Engine struct {
	arena *Arena
	free  BucketTable
	oom   OOMHandler
	diag  *Diagnostics
}

// NewEngine creates an Engine managing size bytes, reporting violations to
// handler and diagnostic events to diag (nil disables diagnostics).
func NewEngine(size uintptr, handler OOMHandler, diag *Diagnostics) *Engine {
	return &Engine{
		arena: NewArena(size),
		oom:   handler,
		diag:  diag,
	}
}

// Start returns the managed region's heap_start equivalent.
func (e *Engine) Start() uintptr { return e.arena.Start() }

// End returns the managed region's heap_end equivalent.
func (e *Engine) End() uintptr { return e.arena.End() }

// Alloc resolves the size class, tries the free-list engine, falls back
// to the bump pointer on a miss, writes the descriptor, and hands back
// the aligned payload address.
func (e *Engine) Alloc(size, align uintptr) uintptr {
	if !isPowerOfTwo(align) {
		e.halt(Violation{Kind: Misuse, Op: "alloc", Size: size, Align: align,
			Message: "alignment must be a nonzero power of two"})
	}

	bucket, allocSize, admin := resolveClass(size, align)

	base, fromQueue := e.free.popHead(bucket)
	if !fromQueue {
		var ok bool
		base, ok = e.arena.bump(allocSize)
		if !ok {
			e.halt(Violation{Kind: OOM, Op: "alloc", Size: allocSize,
				Message: "bump cursor would exceed heap end"})
		}
	}

	desc := descriptorAt(base)
	desc.Magic = Magic
	desc.Bucket = uint32(bucket)
	desc.Size = allocSize
	desc.Align = align
	desc.Prev = 0
	desc.Next = 0

	payloadAddr := (base + admin) &^ (align - 1)
	desc.PayloadAddr = payloadAddr
	writeBackLink(payloadAddr, base)

	if e.diag != nil {
		e.diag.recordAlloc(payloadAddr, bucket, allocSize, fromQueue)
	}

	return payloadAddr
}

// AllocPage is a page-granular, page-aligned entry point served directly
// from the bump pointer, never from the size-class queues. Freed AllocPage
// blocks rejoin the ordinary free path (Free).
func (e *Engine) AllocPage(n, pageSize uintptr) uintptr {
	if !isPowerOfTwo(pageSize) || n == 0 {
		e.halt(Violation{Kind: Misuse, Op: "alloc_page", Size: n, Align: pageSize,
			Message: "page_size must be a power of two and n must be nonzero"})
	}

	descAddr, payloadAddr, ok := e.arena.bumpPage(n, pageSize)
	if !ok {
		e.halt(Violation{Kind: OOM, Op: "alloc_page", Size: n * pageSize,
			Message: "bump cursor would exceed heap end"})
	}

	desc := descriptorAt(descAddr)
	desc.Magic = Magic
	desc.Bucket = OversizeClass
	desc.Size = n*pageSize + descriptorSize
	desc.Align = pageSize
	desc.Prev = 0
	desc.Next = 0
	desc.PayloadAddr = payloadAddr
	writeBackLink(payloadAddr, descAddr)

	if e.diag != nil {
		e.diag.recordAlloc(payloadAddr, OversizeClass, desc.Size, false)
	}

	return payloadAddr
}

// Free recovers the descriptor from the back-link, validates it, clears
// the magic, and either rewinds the bump cursor (free-at-top) or pushes
// the block onto its class queue.
func (e *Engine) Free(ptr uintptr) {
	if ptr == 0 {
		e.halt(Violation{Kind: Misuse, Op: "free", Message: "free of nil pointer"})
	}

	descAddr := readBackLink(ptr)
	desc := descriptorAt(descAddr)
	if desc.Magic != Magic {
		e.halt(Violation{Kind: Corruption, Op: "free", Address: ptr,
			Message: "back-link did not resolve to a live descriptor"})
	}
	desc.Magic = 0

	top := descAddr + desc.Size
	if e.arena.freeAtTop(descAddr, top) {
		if e.diag != nil {
			e.diag.recordFree(ptr, int(desc.Bucket), desc.Size, true)
		}
		return
	}

	bucket := int(desc.Bucket)
	e.free.pushTail(bucket, descAddr)
	if e.diag != nil {
		e.diag.recordFree(ptr, bucket, desc.Size, false)
	}
}

// halt reports v to the OOMHandler. The handler's contract is to never
// return; this call is the last thing the triggering operation does.
func (e *Engine) halt(v Violation) {
	if e.diag != nil {
		e.diag.recordViolation(v)
	}
	e.oom.Halt(v)
	panic("heap: OOMHandler.Halt returned, violating its non-returning contract")
}
