package heap

import (
	"sync/atomic"
	"unsafe"
)

// Arena stands in for the linker-exported heap_start/heap_end region: a
// single pinned byte slice whose base address and length define the flat
// physical address space every Descriptor lives in. Go has no freestanding
// linker step, so the region is taken once from a real allocation instead
// of from symbolic addresses.
type Arena struct {
	mem    []byte
	start  uintptr
	end    uintptr
	cursor atomic.Uintptr
}

// NewArena reserves a size-byte region and returns an Arena bounding it.
// The cursor starts at zero and is lazily initialized to start on first use.
func NewArena(size uintptr) *Arena {
	mem := make([]byte, size)
	base := uintptr(unsafe.Pointer(&mem[0]))
	return &Arena{mem: mem, start: base, end: base + size}
}

// Start returns the heap_start equivalent.
func (a *Arena) Start() uintptr { return a.start }

// End returns the heap_end equivalent.
func (a *Arena) End() uintptr { return a.end }

// ensureInit performs the single CAS from 0 to start. Losers of the race
// simply observe the winner's value.
func (a *Arena) ensureInit() uintptr {
	a.cursor.CompareAndSwap(0, a.start)
	return a.cursor.Load()
}

// bump reserves allocSize bytes from the bump region via atomic fetch-add,
// establishing a total order on bump-path allocations: two concurrent
// callers receive disjoint, non-overlapping regions. Reports ok=false when
// the reservation would exceed the heap end.
func (a *Arena) bump(allocSize uintptr) (base uintptr, ok bool) {
	a.ensureInit()
	newCursor := a.cursor.Add(allocSize)
	base = newCursor - allocSize
	if newCursor > a.end {
		return 0, false
	}
	return base, true
}

// freeAtTop rewinds the cursor by exactly one block size when the block
// being freed is the most recently bumped one. Any other free must go to
// the free-list queue instead.
func (a *Arena) freeAtTop(descAddr, top uintptr) bool {
	return a.cursor.CompareAndSwap(top, descAddr)
}

// bumpPage reserves a page-aligned region for AllocPage. The cursor is
// advanced with a CAS loop rather than a plain store, so the reservation
// is safe under concurrent callers the same way bump is.
func (a *Arena) bumpPage(n, pageSize uintptr) (descAddr, payloadAddr uintptr, ok bool) {
	for {
		cur := a.ensureInit()
		aligned := alignUp(cur, pageSize)
		if aligned-cur < descriptorSize {
			aligned += pageSize
		}
		newCursor := aligned + n*pageSize
		if newCursor > a.end {
			return 0, 0, false
		}
		if a.cursor.CompareAndSwap(cur, newCursor) {
			return aligned - descriptorSize, aligned, true
		}
	}
}

// writeBackLink stores descAddr in the word immediately preceding
// payloadAddr, so free(ptr) can recover the descriptor in O(1).
func writeBackLink(payloadAddr, descAddr uintptr) {
	*(*uintptr)(unsafe.Pointer(payloadAddr - WordSize)) = descAddr
}

// readBackLink recovers the descriptor address a payload pointer was
// issued with.
func readBackLink(payloadAddr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(payloadAddr - WordSize))
}
